package main

import (
	"log"
	"net/http"
	"os"
	"ticketflow/src/boot"
	"ticketflow/src/config"
	"ticketflow/src/lib"
	"ticketflow/src/middlewares"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	apiPrefix string = "/api/v1"
)

// eventDateValidatorFunc rejects dates the store cannot parse, and past
// dates, before the request reaches the core.
var eventDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	datetime, err := time.Parse(config.DATE_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return !datetime.Before(today)
}

func setupRouter() *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("CORS_ORIGIN")},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Station-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middlewares.StationContext)
	r.Use(middlewares.RequestLogger)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("eventdate", eventDateValidatorFunc)
	}

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiv1 := r.Group(apiPrefix)
	eventHandlers(apiv1)
	saleHandlers(apiv1)
	checkinHandlers(apiv1)
	return r
}

func main() {
	if err := boot.InitDb(); err != nil {
		log.Fatalf("Could not initialize database: %s\n", err.Error())
	}
	if broker := os.Getenv("KAFKA_BROKER"); broker != "" {
		_, err := lib.KafkaCreateTopics(
			"events-published",
			"events-finalized",
			"sales-paid",
			"sales-expired",
			"tickets-checked-in",
		)
		if err != nil {
			log.Printf("Could not create topics: %s\n", err.Error())
		}
	}
	if err := boot.InitScheduler(); err != nil {
		log.Printf("Could not start scheduler: %s\n", err.Error())
	}
	defer boot.StopScheduler()

	lib.TestRedis()

	r := setupRouter()
	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Server exited: %s\n", err.Error())
	}
}
