package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"groceryhelper/internal/analysis"
	"groceryhelper/internal/auth"
	"groceryhelper/internal/config"
)

// RegisterRoutes builds the gin router with all API endpoints
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.Default()

	allowedOrigins := strings.Split(config.GetEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173"), ",")
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true, // session cookie
	}))

	r.GET("/health", s.healthHandler)

	// Public auth endpoints
	r.POST("/signup", s.authH.Signup)
	r.POST("/login", s.authH.Login)
	r.POST("/logout", s.authH.Logout)

	// Session-protected endpoints
	protected := r.Group("/")
	protected.Use(auth.SessionAuthMiddleware(s.sessionMgr))
	{
		protected.GET("/me", s.authH.Me)
		protected.DELETE("/account", s.authH.DeleteAccount)
		protected.POST("/analyze", s.analyzeHandler)
	}

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	response := make(map[string]interface{})

	response["database"] = s.db.Health()

	redisHealth := make(map[string]string)
	if err := s.sessionMgr.Ping(c.Request.Context()); err != nil {
		redisHealth["status"] = "down"
		redisHealth["error"] = err.Error()
	} else {
		redisHealth["status"] = "up"
	}
	response["redis"] = redisHealth

	if s.storage != nil {
		storageHealth := make(map[string]string)
		if err := s.storage.Health(c.Request.Context()); err != nil {
			storageHealth["status"] = "down"
			storageHealth["error"] = err.Error()
		} else {
			storageHealth["status"] = "up"
		}
		response["storage"] = storageHealth
	}

	c.JSON(http.StatusOK, response)
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AnalyzeResponse carries the AI assessment of an ingredient label
type AnalyzeResponse struct {
	Assessment string `json:"assessment"`
	Disclaimer string `json:"disclaimer"`
	// PhotoURL is a presigned link to the stored label photo; empty
	// when photo storage is unconfigured or failed
	PhotoURL string `json:"photo_url,omitempty"`
}

// analyzeHandler accepts a multipart form with an ingredient label
// photo ("image") and free-text dietary restrictions ("restrictions")
// and returns the AI safety assessment
func (s *Server) analyzeHandler(c *gin.Context) {
	if s.analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "Analysis service is not available",
			Code:  "ANALYZER_UNAVAILABLE",
		})
		return
	}

	restrictions := c.PostForm("restrictions")
	if !analysis.ValidateRestrictions(restrictions) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Please provide more detailed dietary restrictions",
			Code:  "RESTRICTIONS_TOO_VAGUE",
		})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "An ingredient label photo is required",
			Code:    "IMAGE_REQUIRED",
			Details: err.Error(),
		})
		return
	}
	if fileHeader.Size > analysis.MaxImageBytes {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("Image cannot exceed %d bytes", analysis.MaxImageBytes),
			Code:  "IMAGE_TOO_LARGE",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to read uploaded image",
			Code:    "IMAGE_UNREADABLE",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to read uploaded image",
			Code:    "IMAGE_UNREADABLE",
			Details: err.Error(),
		})
		return
	}

	image := analysis.ImageInput{
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}

	assessment, err := s.analyzer.Analyze(c.Request.Context(), image, restrictions)
	if err != nil {
		log.Printf("Analysis failed: %v", err)

		switch {
		case errors.Is(err, analysis.ErrUnsupportedImage):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "Unsupported image type; upload a jpeg, png or webp photo",
				Code:  "INVALID_IMAGE_TYPE",
			})
		case errors.Is(err, analysis.ErrImageTooLarge):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "Image too large",
				Code:  "IMAGE_TOO_LARGE",
			})
		default:
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Error: "Analysis service failed, try again later",
				Code:  "ANALYSIS_FAILED",
			})
		}
		return
	}

	// Stash the label photo so the client can re-display it. Failure
	// here degrades the response, never the analysis.
	var photoURL string
	if s.storage != nil {
		key := fmt.Sprintf("labels/%s-%s", uuid.New().String(), fileHeader.Filename)
		photoURL, err = s.storage.SaveLabelPhoto(c.Request.Context(), key, image.ContentType, data)
		if err != nil {
			log.Printf("Failed to store label photo %s: %v", key, err)
			photoURL = ""
		}
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		Assessment: assessment,
		Disclaimer: analysis.Disclaimer,
		PhotoURL:   photoURL,
	})
}
