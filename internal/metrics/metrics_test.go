package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestCollector_RecordsMetrics は各メトリクスが記録され/metricsで公開されることを検証する。
func TestCollector_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFeedPage("priority", 120*time.Millisecond)
	c.RecordFeedPage("shuffle", 80*time.Millisecond)
	c.RecordFeedPage("shuffle", 90*time.Millisecond)
	c.RecordPostsServed(20)
	c.RecordEnrichmentDegraded("nicknames")
	c.RecordStoreError()

	srv := httptest.NewServer(SetupMetricsRoute(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read metrics body: %v", err)
	}
	body := string(raw)

	expectations := []string{
		`shikujiri_feed_pages_total{mode="priority"} 1`,
		`shikujiri_feed_pages_total{mode="shuffle"} 2`,
		`shikujiri_posts_served_total 20`,
		`shikujiri_enrichment_degraded_total{lookup="nicknames"} 1`,
		`shikujiri_store_errors_total 1`,
	}
	for _, want := range expectations {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output should contain %q\noutput:\n%s", want, body)
		}
	}
}

// TestCollector_DuplicateRegistrationPanics は同一レジストリへの二重登録がパニックすることを検証する。
// 起動時のワイヤリングミスを早期に検出するための挙動。
func TestCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate metric registration")
		}
	}()
	NewCollector(reg)
}
