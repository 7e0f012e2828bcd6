package middleware

import (
	"context"
	"crypto/rsa"
	"net/http"
	"strings"

	app_error "github.com/pipohost/ronza-sub000/internal/errors"
	"github.com/pipohost/ronza-sub000/internal/utils"
	"github.com/rs/zerolog/log"
)

type claimsKey string

const UserClaimsKey claimsKey = "userClaims"

// JWTAuth verifies the bearer session token and stores the stable user id in
// the request context. Token issuance and refresh are the account service's
// problem; this core only verifies.
func JWTAuth(publicKey *rsa.PublicKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAppError(w, app_error.New(app_error.KindUnauthorized, http.StatusUnauthorized, "Missing Authorization header", "auth"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeAppError(w, app_error.New(app_error.KindUnauthorized, http.StatusUnauthorized, "Invalid Authorization header format", "auth"))
				return
			}

			tokenStr := parts[1]

			claims, err := utils.ParseAndVerifySign(tokenStr, publicKey)
			if err != nil {
				log.Error().Err(err).Msg("jwt verify failed")
				writeAppError(w, app_error.New(app_error.KindUnauthorized, http.StatusUnauthorized, "Invalid or expired token", "auth"))
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAppError(w http.ResponseWriter, appErr *app_error.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code)
	_ = appErr.JSON(w)
}
