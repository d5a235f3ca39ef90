package httpCors

import (
	"github.com/rs/cors"
)

// CorsSettings allows the configured origins, with credentials. An empty list
// allows any origin.
func CorsSettings(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Authorization"},
	})
	return c
}
