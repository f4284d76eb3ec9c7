package api

import "net/http"

const (
	headerUserID   = "X-User-Id"
	headerUserName = "X-User-Name"
)

// authMiddleware extracts the caller identity from headers and adds it to
// the request context. Requests without identity pass through as anonymous;
// the permission mode of each document decides what they may do.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			UserID: r.Header.Get(headerUserID),
			Name:   r.Header.Get(headerUserName),
		}

		if id.Name == "" {
			id.Name = id.UserID
		}

		ctx := withIdentity(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
