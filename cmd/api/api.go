package api

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/miniforum/mini-forum-server/cmd/utils"
	"github.com/miniforum/mini-forum-server/service/category"
	"github.com/miniforum/mini-forum-server/service/comment"
	"github.com/miniforum/mini-forum-server/service/post"
	"github.com/miniforum/mini-forum-server/service/report"
	"github.com/miniforum/mini-forum-server/service/tag"
	"github.com/miniforum/mini-forum-server/service/user"
)

type APIServer struct {
	address string
	db      *gorm.DB
	rdb     *redis.Client
}

func NewApiServer(address string, db *gorm.DB, rdb *redis.Client) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
		rdb:     rdb,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api").Subrouter()

	limiter := utils.NewRateLimiter(s.rdb)
	hotPosts := utils.NewHotPosts(s.rdb)

	userHandler := user.NewHandler(s.db, limiter)
	userHandler.RegisterRoutes(subrouter)

	postHandler := post.NewHandler(s.db, hotPosts)
	postHandler.RegisterRoutes(subrouter)

	commentHandler := comment.NewHandler(s.db)
	commentHandler.RegisterRoutes(subrouter)

	categoryHandler := category.NewHandler(s.db)
	categoryHandler.RegisterRoutes(subrouter)

	tagHandler := tag.NewHandler(s.db)
	tagHandler.RegisterRoutes(subrouter)

	reportHandler := report.NewHandler(s.db)
	reportHandler.RegisterRoutes(subrouter)

	// Uploaded files are served straight from disk under /media/.
	media := http.StripPrefix("/media/", http.FileServer(http.Dir(utils.MediaRoot)))
	router.PathPrefix("/media/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if utils.ContainsDotDot(r.URL.Path) {
			http.Error(w, "Invalid path", http.StatusBadRequest)
			return
		}
		media.ServeHTTP(w, r)
	})

	cors := handlers.CORS(
		handlers.AllowedOrigins(acceptedOrigins()),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, cors(router))
}

func acceptedOrigins() []string {
	raw := os.Getenv("ACCEPTED_ORIGINS")
	if raw == "" {
		return []string{"*"}
	}
	origins := strings.Split(raw, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}
