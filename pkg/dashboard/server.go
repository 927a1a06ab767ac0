package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"tweetsync/pkg/logger"
	"tweetsync/pkg/storage"
)

// Resolver returns the sources to load. It runs once per request so a
// record set written after the server started is picked up.
type Resolver func() (Sources, error)

// StaticSources returns a Resolver over the given tables whose record set
// is always the newest file in store. store may be nil.
func StaticSources(src Sources, store *storage.Manager) Resolver {
	return func() (Sources, error) {
		if store == nil {
			return src, nil
		}
		latest, err := store.Latest()
		if errors.Is(err, storage.ErrNoRecordSets) {
			return src, nil
		}
		if err != nil {
			return Sources{}, err
		}
		src.RecordSet = latest
		return src, nil
	}
}

// Server serves the dashboard page, a small JSON summary and the rows of
// the current record set
type Server struct {
	resolve Resolver
	log     logger.Logger
	started time.Time
}

// NewServer creates a dashboard server
func NewServer(resolve Resolver, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Server{resolve: resolve, log: log, started: time.Now()}
}

func (s *Server) load() (*Data, error) {
	src, err := s.resolve()
	if err != nil {
		return nil, err
	}
	return Load(src)
}

// Router builds the gin engine
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog(), securityHeaders())

	r.GET("/", func(c *gin.Context) {
		data, err := s.load()
		if err != nil {
			s.log.WithError(err).Error("Failed to load dashboard data")
			c.String(http.StatusInternalServerError, "failed to load dashboard data: %v", err)
			return
		}
		var buf bytes.Buffer
		if err := data.Render(&buf); err != nil {
			s.log.WithError(err).Error("Failed to render dashboard")
			c.String(http.StatusInternalServerError, "failed to render dashboard: %v", err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	})

	r.GET("/api/summary", func(c *gin.Context) {
		data, err := s.load()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		id, members := DensestCluster(data.Clusters)
		c.JSON(http.StatusOK, gin.H{
			"sentiment":       data.Sentiment,
			"emotion_rows":    len(data.Emotions),
			"clusters":        ClusterSizes(data.Clusters),
			"densest_cluster": gin.H{"id": id, "size": len(members)},
			"volume":          data.Volume,
		})
	})

	r.GET("/api/posts", s.posts)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"timestamp":      time.Now().UTC(),
			"uptime_seconds": int(time.Since(s.started).Seconds()),
		})
	})

	return r
}

func (s *Server) posts(c *gin.Context) {
	q, err := ParsePostsQuery(c.Query("page"), c.Query("limit"), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, err := s.resolve()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if src.RecordSet == "" {
		c.JSON(http.StatusOK, PagePosts(nil, q))
		return
	}

	rows, _, err := storage.ReadRows(src.RecordSet)
	if err != nil {
		s.log.WithError(err).Error("Failed to read record set")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, PagePosts(rows, q))
}

// Serve listens on addr until ctx is cancelled
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("Dashboard listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve dashboard: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown dashboard: %w", err)
	}
	s.log.Info("Dashboard stopped")
	return nil
}

// WriteFile renders the dashboard once into path
func (s *Server) WriteFile(path string) error {
	data, err := s.load()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := data.Render(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write dashboard: %w", err)
	}
	return nil
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.DebugWithFields("Dashboard request", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		})
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}
