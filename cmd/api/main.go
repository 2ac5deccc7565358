package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"tailorlink/internal/database"
	"tailorlink/internal/mail"
	"tailorlink/internal/middleware"
	"tailorlink/internal/modules/auth"
	"tailorlink/internal/modules/notification"
	"tailorlink/internal/modules/offer"
	"tailorlink/internal/modules/order"
	jwtsvc "tailorlink/internal/pkg/jwt"
	"tailorlink/internal/pkg/response"
	"tailorlink/internal/repository"
	"tailorlink/internal/ws"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "tailorlink.db"
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is empty")
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal(err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}
	if err := notification.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	userRepo := repository.NewUserRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	notifRepo := notification.NewRepository(db)

	j := jwtsvc.New(secret, 24*time.Hour)
	hub := ws.NewHub()
	mailer := buildMailer()

	authService := auth.NewService(userRepo, j)
	authHandler := auth.NewHandler(authService)

	notifService := notification.NewService(notifRepo, hub)
	notifHandler := notification.NewHandler(notifService)

	orderService := order.NewService(orderRepo, offerRepo)
	orderHandler := order.NewHandler(orderService)

	offerService := offer.NewService(offerRepo, userRepo, orderService, notifService, mailer)
	offerHandler := offer.NewHandler(offerService)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterRoutes(v1)
		v1.GET("/ws", serveWS(j, hub))

		// protected
		protected := v1.Group("/")
		protected.Use(middleware.Auth(j))
		{
			offerHandler.RegisterRoutes(protected)
			orderHandler.RegisterRoutes(protected)
			notifHandler.RegisterRoutes(protected)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}

// serveWS upgrades the connection for real-time notification pushes.
// Browsers cannot set headers on websocket upgrades, so the token is also
// accepted as a query parameter.
func serveWS(j *jwtsvc.Service, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			h := c.GetHeader("Authorization")
			token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}

		claims, err := j.ValidateToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			return
		}
		userID := claims.UserID

		if hub.IsOnline(userID) {
			log.Printf("ws: user_id=%d reconnecting, displacing previous connection", userID)
		}

		conn, err := ws.Upgrade(c.Writer, c.Request)
		if err != nil {
			log.Printf("ws: upgrade failed user_id=%d err=%v", userID, err)
			return
		}
		hub.ServeWS(conn, userID)
	}
}

func buildMailer() mail.Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return mail.NewDevConsoleMailer(os.Getenv("DEV_EMAIL_LOG") != "")
	}

	port := 587
	if raw := os.Getenv("SMTP_PORT"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			port = v
		}
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@tailorlink.local"
	}
	return mail.NewSMTPMailer(host, port, from, os.Getenv("SMTP_USERNAME"), os.Getenv("SMTP_PASSWORD"))
}
