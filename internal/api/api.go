// Package api sets up and starts the API
// server with routing, middleware, and Swagger documentation.
package api

import (
	"fmt"
	"net/http"
	"time"

	_ "github.com/msegal/heirloom/docs"
	"github.com/msegal/heirloom/internal/api/middleware"
	"github.com/msegal/heirloom/internal/api/routes/categories"
	"github.com/msegal/heirloom/internal/api/routes/comments"
	"github.com/msegal/heirloom/internal/api/routes/likes"
	"github.com/msegal/heirloom/internal/api/routes/ping"
	"github.com/msegal/heirloom/internal/api/routes/recipes"
	"github.com/msegal/heirloom/internal/api/routes/users"
	"github.com/msegal/heirloom/internal/env"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func addDocs(r *chi.Mux, serverAddr string) {
	swagger := httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s/api/swagger/doc.json", serverAddr)),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	)

	r.Mount("/api/swagger", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		// Handle preflight
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Allow GET to serve Swagger
		if req.Method == http.MethodGet {
			swagger.ServeHTTP(w, req)
			return
		}

		// Block anything else
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}))
}

func addRoutes(router *chi.Mux) {
	router.Route("/api", func(r chi.Router) {
		r.Get("/ping", ping.HandlePing)

		r.Post("/signup", users.HandleSignup)
		r.Post("/login", users.HandleLogin)
		r.Post("/logout", users.HandleLogout)

		r.Get("/categories", categories.HandleListCategories)

		r.Route("/session", func(r chi.Router) {
			r.Use(middleware.RequireUser)

			r.Get("/", users.HandleGetSession)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/{userID}", users.HandleGetUser)
			r.Get("/{userID}/recipes", recipes.HandleListUserRecipes)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireUser)

				r.Patch("/me", users.HandleUpdateProfile)
				r.Put("/me/photo", users.HandleUploadProfilePhoto)
			})
		})

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", recipes.HandleListRecipes)
			r.Get("/{recipeID}", recipes.HandleGetRecipe)
			r.Get("/{recipeID}/comments", comments.HandleListComments)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireUser)

				r.Post("/", recipes.HandleCreateRecipe)
				r.Patch("/{recipeID}", recipes.HandleUpdateRecipe)
				r.Delete("/{recipeID}", recipes.HandleDeleteRecipe)
				r.Put("/{recipeID}/image", recipes.HandleUploadRecipeImage)
				r.Post("/{recipeID}/image/import", recipes.HandleImportRecipeImage)

				r.Get("/{recipeID}/like", likes.HandleGetLike)
				r.Post("/{recipeID}/like", likes.HandleToggleLike)

				r.Post("/{recipeID}/comments", comments.HandlePostComment)
				r.Patch("/{recipeID}/comments/{commentID}", comments.HandleEditComment)
				r.Delete("/{recipeID}/comments/{commentID}", comments.HandleDeleteComment)
			})
		})
	})
}

// Start godoc
//
//	@title						Heirloom API
//	@version					1.0
//	@description				API server for the Heirloom family recipe collection.
//
//	@securityDefinitions.apikey	AccessTokenCookie
//	@in							cookie
//	@name						access
//
//	@host						localhost:8080
//	@BasePath					/api
func Start(env *env.Env) error {
	router := chi.NewRouter()
	router.Use(middleware.AddRequestID)
	router.Use(middleware.LogRequest(env.Logger))
	router.Use(middleware.InjectEnv(env))
	router.Use(middleware.AddTimeout)
	router.Use(middleware.AddCors)
	router.Use(middleware.Authenticate)

	addRoutes(router)
	addDocs(router, fmt.Sprintf("0.0.0.0:%d", env.Config.Port))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", env.Config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}

	env.Logger.Info(fmt.Sprintf("Listening at 0.0.0.0:%d", env.Config.Port))
	env.Logger.Info(fmt.Sprintf("Swagger UI available at http://0.0.0.0:%d/api/swagger/index.html", env.Config.Port))
	return server.ListenAndServe()
}
