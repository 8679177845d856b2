package dataset_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gwillem/lerobot-inspect/pkg/dataset"
	"github.com/gwillem/lerobot-inspect/pkg/hub"
)

const infoOnly = `{"codebase_version": "v2.1", "total_episodes": 1, "fps": 10, "features": {
  "action": {"dtype": "float32", "shape": [2], "names": null}
}}`

func TestLoadMetadata_OfflineWithoutListings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/datasets/user/no_listing/resolve/main/meta/info.json" {
			w.Write([]byte(infoOnly))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	newSource := func(offline bool) dataset.Source {
		c := hub.NewClient(
			hub.WithEndpoint(srv.URL),
			hub.WithCacheDir(cacheDir),
			hub.WithRetries(0, time.Millisecond),
			hub.WithOffline(offline),
		)
		return dataset.HubSource{Client: c, RepoID: "user/no_listing"}
	}

	ctx := context.Background()
	if _, err := dataset.LoadMetadata(ctx, "user/no_listing", newSource(false)); err != nil {
		t.Fatalf("online LoadMetadata: %v", err)
	}

	meta, err := dataset.LoadMetadata(ctx, "user/no_listing", newSource(true))
	if err != nil {
		t.Fatalf("offline LoadMetadata: %v", err)
	}
	if len(meta.Episodes) != 0 || len(meta.Tasks) != 0 {
		t.Errorf("expected no listings, got %d episodes and %d tasks", len(meta.Episodes), len(meta.Tasks))
	}
}

func TestHubSource_OfflineUncachedInfo(t *testing.T) {
	c := hub.NewClient(hub.WithCacheDir(t.TempDir()), hub.WithOffline(true))
	_, err := dataset.LoadMetadata(context.Background(), "user/never_seen", dataset.HubSource{Client: c, RepoID: "user/never_seen"})
	if !errors.Is(err, hub.ErrOffline) {
		t.Errorf("err = %v, want ErrOffline", err)
	}
}
