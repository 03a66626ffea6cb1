package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/duskfall/hollowvale/internal/game"
	"github.com/duskfall/hollowvale/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// writeGameError is exercised directly (no engine/store wiring needed) to
// confirm it maps a GameError to the right HTTP status and drives the
// actions-rejected counter, per spec §7's error taxonomy.
func TestWriteGameErrorMapsStatusAndCountsRejection(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := &Handler{metrics: m}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	h.writeGameError(c, &game.GameError{Code: game.ErrRoomNotFound, Message: "no such room"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ActionsRejected.WithLabelValues(string(game.ErrRoomNotFound))))

	w2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(w2)
	h.writeGameError(c2, &game.GameError{Code: game.ErrOnlyOwnerMayStart})
	assert.Equal(t, http.StatusForbidden, w2.Code)
}
