// Package refdata loads the six immutable reference tables the quoting
// engine resolves against and exposes read-only views over them.
package refdata

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sinergia/leadquote/internal/fetcher"
)

// Dataset names one reference table. The value is also the file stem.
type Dataset string

const (
	DatasetConfig       Dataset = "simulacao_config"
	DatasetDistributors Dataset = "distribuidoras"
	DatasetStates       Dataset = "estados"
	DatasetBonusTypes   Dataset = "tipos_bonus"
	DatasetBands        Dataset = "faixas_consumo"
	DatasetRules        Dataset = "regras_desconto"
)

// Datasets lists every table Load requires.
var Datasets = []Dataset{
	DatasetConfig,
	DatasetDistributors,
	DatasetStates,
	DatasetBonusTypes,
	DatasetBands,
	DatasetRules,
}

// FileName returns the JSON file name of the dataset.
func (d Dataset) FileName() string {
	return string(d) + ".json"
}

// Source opens the raw JSON of a dataset. Callers close the reader.
type Source interface {
	Fetch(ctx context.Context, ds Dataset) (io.ReadCloser, error)
}

// DirSource reads datasets from a local directory.
type DirSource struct {
	Dir string
}

// NewDirSource returns a Source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// Fetch opens <dir>/<dataset>.json.
func (s *DirSource) Fetch(ctx context.Context, ds Dataset) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrapf(err, "refdata: open %s", ds)
	}
	f, err := os.Open(filepath.Join(s.Dir, ds.FileName()))
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: open %s", ds)
	}
	return f, nil
}

// HTTPSource downloads datasets from <baseURL>/<dataset>.json. Bodies served
// with an ETag are kept so the next fetch can be answered with a 304.
type HTTPSource struct {
	baseURL string
	fetcher fetcher.Fetcher

	mu    sync.Mutex
	cache map[Dataset]cachedDataset
}

type cachedDataset struct {
	etag string
	data []byte
}

// NewHTTPSource validates baseURL and returns an HTTP-backed Source.
func NewHTTPSource(baseURL string, f fetcher.Fetcher) (*HTTPSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, eris.Errorf("refdata: invalid base url %q", baseURL)
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: f,
		cache:   make(map[Dataset]cachedDataset),
	}, nil
}

// URL returns the address the dataset is fetched from.
func (s *HTTPSource) URL(ds Dataset) string {
	return s.baseURL + "/" + ds.FileName()
}

// Fetch downloads the dataset, or replays the cached copy when the server
// reports it unchanged.
func (s *HTTPSource) Fetch(ctx context.Context, ds Dataset) (io.ReadCloser, error) {
	s.mu.Lock()
	prev := s.cache[ds]
	s.mu.Unlock()

	res, err := s.fetcher.Revalidate(ctx, s.URL(ds), prev.etag)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: download %s", ds)
	}
	if res.NotModified {
		zap.L().Debug("refdata: dataset unchanged", zap.String("dataset", string(ds)))
		return io.NopCloser(bytes.NewReader(prev.data)), nil
	}
	if res.ETag == "" {
		return res.Body, nil
	}

	defer res.Body.Close() //nolint:errcheck
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: read %s", ds)
	}

	s.mu.Lock()
	s.cache[ds] = cachedDataset{etag: res.ETag, data: data}
	s.mu.Unlock()

	return io.NopCloser(bytes.NewReader(data)), nil
}
