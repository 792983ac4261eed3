package middleware

import (
	"net/http"

	"github.com/rpattn/catalog-export/internal/relationloader"
	"github.com/rpattn/catalog-export/internal/repository"
)

// RelationLoaderMiddleware attaches fresh brand/category/model loaders to the
// request context, so every export run gets its own cache.
func RelationLoaderMiddleware(repo repository.RelationRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loaders := relationloader.New(repo)
			ctx := relationloader.WithLoaders(r.Context(), loaders)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
