package webserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/studyhive/steward/src/config"
	"github.com/studyhive/steward/src/data"
	"github.com/studyhive/steward/src/suggestions"
	"gorm.io/gorm"
)

type suggestionView struct {
	ID              uint64    `json:"id"`
	Author          string    `json:"author"`
	AuthorName      string    `json:"authorName"`
	Text            string    `json:"text"`
	Status          string    `json:"status"`
	Upvotes         int       `json:"upvotes"`
	Downvotes       int       `json:"downvotes"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	DiscussionRef   string    `json:"discussionRef,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func attachRoutes(g *gin.Engine, cfg config.Config, engine *suggestions.Engine, db *gorm.DB) {
	g.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"suggestions": engine.Store().Len(),
		})
	})

	v1 := g.Group("/v1")

	v1.GET("/suggestions", func(c *gin.Context) {
		records := engine.Store().Snapshot()
		views := make([]suggestionView, 0, len(records))
		for _, rec := range records {
			views = append(views, toView(rec))
		}
		c.JSON(http.StatusOK, gin.H{"suggestions": views})
	})

	v1.GET("/suggestions/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": "invalid id"})
			return
		}
		rec, err := engine.Store().Get(id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"err": "not found"})
			return
		}
		c.JSON(http.StatusOK, toView(rec))
	})

	staff := v1.Group("", requireStaffToken(cfg.JWTSecret))

	// Settings live in the database; staff can reload the cache without a
	// restart after editing them.
	staff.POST("/settings/refresh", func(c *gin.Context) {
		if err := data.RefreshSettings(db); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"err": "refresh failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
	})

	staff.GET("/infractions/:userID", func(c *gin.Context) {
		var rows []data.Infraction
		err := db.Where("guild_id = ? AND user_id = ?", cfg.GuildID, c.Param("userID")).
			Order("created_at asc").
			Find(&rows).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"err": "query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"infractions": rows})
	})
}

func toView(rec *suggestions.Record) suggestionView {
	tally := rec.Tally()
	return suggestionView{
		ID:              rec.ID,
		Author:          rec.AuthorID,
		AuthorName:      rec.AuthorName,
		Text:            rec.Text,
		Status:          string(rec.Status),
		Upvotes:         tally.Up,
		Downvotes:       tally.Down,
		RejectionReason: rec.RejectionReason,
		DiscussionRef:   rec.DiscussionRef,
		CreatedAt:       rec.CreatedAt,
	}
}

// requireStaffToken validates a bearer token signed with the shared staff
// secret. With no secret configured, the staff routes are disabled rather
// than left open.
func requireStaffToken(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"err": "staff API disabled"})
			return
		}

		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": "missing token"})
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": "invalid token"})
			return
		}

		c.Next()
	}
}
