package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPrometheusApp(t *testing.T) (*fiber.App, *PrometheusMiddleware, *prometheus.Registry) {
	t.Helper()
	// Fresh registry per test avoids duplicate registration.
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(m.Handler())
	return app, m, reg
}

func TestPrometheusMiddleware(t *testing.T) {
	app, m, _ := newPrometheusApp(t)

	app.Get("/vcard", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Delete("/vcard", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/error", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "bad request")
	})

	resp, _ := app.Test(httptest.NewRequest("GET", "/vcard", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/vcard", "200")))

	app.Test(httptest.NewRequest("DELETE", "/vcard", nil))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestCount.WithLabelValues("DELETE", "/vcard", "200")))

	app.Test(httptest.NewRequest("GET", "/error", nil))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/error", "400")))
}

func TestPrometheusMiddleware_ExcludeMetrics(t *testing.T) {
	app, _, reg := newPrometheusApp(t)

	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	app.Test(httptest.NewRequest("GET", "/metrics", nil))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		assert.Empty(t, mf.GetMetric(), mf.GetName())
	}
}

func TestPrometheusMiddleware_PathPattern(t *testing.T) {
	app, m, _ := newPrometheusApp(t)

	app.Get("/contacts/:id/vcard", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	app.Test(httptest.NewRequest("GET", "/contacts/123/vcard", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/contacts/:id/vcard", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))
}

func TestNewPrometheusMiddleware_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	_, err = NewPrometheusMiddleware(reg)
	assert.Error(t, err)
}
