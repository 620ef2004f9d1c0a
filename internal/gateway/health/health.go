// Package health probes the gateway's backing stores and reports the result
// over HTTP and the standard gRPC health service.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"
)

const probeTimeout = 3 * time.Second

type Probe func(ctx context.Context) error

type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type named struct {
	name  string
	probe Probe
}

type Checker struct {
	mu     sync.Mutex
	probes []named
	server *health.Server
}

// NewChecker reports into server when it is non-nil.
func NewChecker(server *health.Server) *Checker {
	return &Checker{server: server}
}

func (c *Checker) Add(name string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes = append(c.probes, named{name: name, probe: probe})
}

// Check runs every probe and returns the per-dependency results and whether
// all of them passed.
func (c *Checker) Check(ctx context.Context) (map[string]Result, bool) {
	c.mu.Lock()
	probes := append([]named(nil), c.probes...)
	c.mu.Unlock()

	results := make(map[string]Result, len(probes))
	healthy := true
	for _, p := range probes {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := p.probe(pctx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			healthy = false
			status = healthpb.HealthCheckResponse_NOT_SERVING
			results[p.name] = Result{Status: "unavailable", Message: err.Error()}
		} else {
			results[p.name] = Result{Status: "healthy", Message: "responding"}
		}
		if c.server != nil {
			c.server.SetServingStatus(p.name, status)
		}
	}

	if c.server != nil {
		overall := healthpb.HealthCheckResponse_SERVING
		if !healthy {
			overall = healthpb.HealthCheckResponse_NOT_SERVING
		}
		c.server.SetServingStatus("", overall)
	}
	return results, healthy
}

// Watch re-runs the probes every interval until ctx is done, keeping the
// gRPC status current between HTTP checks.
func (c *Checker) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

func DBProbe(db *gorm.DB) Probe {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func RedisProbe(client *redis.Client) Probe {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		results, healthy := c.Check(ctx.Request.Context())

		unavailable := []string{}
		for name, r := range results {
			if r.Status != "healthy" {
				unavailable = append(unavailable, name)
			}
		}

		status := "healthy"
		httpStatus := http.StatusOK
		if !healthy {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		ctx.JSON(httpStatus, gin.H{
			"status":               status,
			"message":              "Server is running",
			"unavailable_services": unavailable,
			"timestamp":            time.Now(),
		})
	}
}

func (c *Checker) DetailedHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		results, healthy := c.Check(ctx.Request.Context())

		overallStatus := "healthy"
		if !healthy {
			overallStatus = "degraded"
		}

		ctx.JSON(http.StatusOK, gin.H{
			"overall_status": overallStatus,
			"services":       results,
			"timestamp":      time.Now(),
		})
	}
}
