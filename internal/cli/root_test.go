package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/cardset/internal/metrics"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute(context.Background()))
	assert.Equal(t, "cardset "+Version+"\n", out.String())
}

func TestWriteStats(t *testing.T) {
	m := metrics.New(nil)
	m.CurationStrategyTotal.WithLabelValues("part-of").Inc()
	m.RemoteRequestsTotal.WithLabelValues("wikipedia", "search", metrics.StatusOK).Add(2)

	var out bytes.Buffer
	require.NoError(t, writeStats(&out, m))

	assert.Contains(t, out.String(), `  cardset_curation_strategy_total{strategy="part-of"} 1`)
	assert.Contains(t, out.String(), `  cardset_remote_requests_total{operation="search",service="wikipedia",status="ok"} 2`)
}

func TestFormatLabels(t *testing.T) {
	assert.Empty(t, formatLabels(nil))
	assert.Equal(t, `{a="1",b="2"}`, formatLabels(map[string]string{"b": "2", "a": "1"}))
}
