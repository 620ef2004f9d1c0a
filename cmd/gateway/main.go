package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"emirates-backoffice/config"
	"emirates-backoffice/internal/database"
	"emirates-backoffice/internal/gateway"
	"emirates-backoffice/internal/gateway/health"
	inventory "emirates-backoffice/internal/services/inventory/handler"
	settlement "emirates-backoffice/internal/services/settlement/handler"
	users "emirates-backoffice/internal/services/user/handler"
	"emirates-backoffice/internal/utils"
)

func main() {
	cfg := config.LoadConfig()
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY must be set")
	}
	utils.JwtSecret = []byte(cfg.Auth.JWTSecret)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := database.NewConnection(cfg.DB.PostgresDSN())
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	if err := database.MigrateSettlementDB(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	userHandler := users.NewUserHandler(db, redisClient, cfg.Auth.TokenTTL)
	customerHandler := users.NewCustomerHandler(db, redisClient)
	inventoryHandler := inventory.NewInventoryHandler(db, redisClient)
	settlementHandler := settlement.NewSettlementHandler(db, userHandler, inventoryHandler, customerHandler,
		settlement.WithEventPublisher(settlement.NewRedisPublisher(redisClient)),
		settlement.WithLogger(logger),
		settlement.WithVATRate(cfg.Settlement.VATRate),
		settlement.WithLocation(cfg.Settlement.Location),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthServer := grpchealth.NewServer()
	checker := health.NewChecker(healthServer)
	checker.Add("database", health.DBProbe(db))
	checker.Add("redis", health.RedisProbe(redisClient))
	go checker.Watch(ctx, 15*time.Second)

	lis, err := net.Listen("tcp", ":"+cfg.GRPC.HealthPort)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	go func() {
		log.Printf("gRPC health service listening on :%s", cfg.GRPC.HealthPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC server stopped: %v", err)
		}
	}()

	r := gateway.NewRouter(gateway.Deps{
		Settlement:  settlementHandler,
		Inventory:   inventoryHandler,
		Users:       userHandler,
		Customers:   customerHandler,
		Authorizer:  userHandler,
		Health:      checker,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		RateLimit:   cfg.HTTP.RateLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	grpcServer.GracefulStop()
}
