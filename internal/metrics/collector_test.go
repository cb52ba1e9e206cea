package metrics_test

import (
	"sync"
	"testing"
	"time"

	"github.com/lblod/entity-linker/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTiming(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordTiming(metrics.OpKBSearch, 10*time.Millisecond)
	c.RecordTiming(metrics.OpKBSearch, 30*time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.KBSearch)
	assert.Equal(t, int64(2), snap.KBSearch.Count)
	assert.Equal(t, int64(10), snap.KBSearch.MinTimeMs)
	assert.Equal(t, int64(30), snap.KBSearch.MaxTimeMs)
	assert.InDelta(t, 20.0, snap.KBSearch.AvgTimeMs, 0.001)
	assert.Nil(t, snap.KBSearch.TotalInputTokens, "timing-only ops have no token stats")
	assert.Nil(t, snap.Embedding, "unused ops are omitted")
}

func TestRecordLLMUsage(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordLLMUsage(metrics.OpAgentLLM, time.Second, 100, 20)
	c.RecordLLMUsage(metrics.OpAgentLLM, time.Second, 300, 40)

	snap := c.Snapshot()
	require.NotNil(t, snap.AgentLLM)
	require.NotNil(t, snap.AgentLLM.TotalInputTokens)
	assert.Equal(t, int64(400), *snap.AgentLLM.TotalInputTokens)
	assert.InDelta(t, 30.0, *snap.AgentLLM.AvgOutputTokens, 0.001)
}

func TestNilCollector(t *testing.T) {
	var c *metrics.Collector
	assert.NotPanics(t, func() {
		c.RecordTiming(metrics.OpTaskSuccess, time.Second)
		c.RecordLLMUsage(metrics.OpAgentLLM, time.Second, 1, 1)
	})
}

func TestConcurrentRecording(t *testing.T) {
	c := metrics.NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordTiming(metrics.OpSPARQLUpdate, time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), c.Snapshot().SPARQLUpdate.Count)
}
