package probe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/redis/go-redis/v9"
	_ "golang.org/x/image/webp"

	commonlog "eventgallery/server/common/log"
)

const (
	DefaultMaxBytes = 40 << 20
	cacheKeyPrefix  = "gallery:probe:"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// HTTPProber downloads an image and reports its displayed size, honoring EXIF
// orientation. Results are cached in redis when a client is configured.
type HTTPProber struct {
	client   *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
	maxBytes int64
}

func NewHTTPProber(client *http.Client, cache *redis.Client, cacheTTL time.Duration, maxBytes int64) *HTTPProber {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &HTTPProber{client: client, cache: cache, cacheTTL: cacheTTL, maxBytes: maxBytes}
}

func (p *HTTPProber) Probe(ctx context.Context, url string) (int, int, error) {
	if w, h, ok := p.cached(ctx, url); ok {
		return w, h, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, 0, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	img, err := imaging.Decode(io.LimitReader(resp.Body, p.maxBytes), imaging.AutoOrientation(true))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	p.store(ctx, url, w, h)
	return w, h, nil
}

func (p *HTTPProber) cached(ctx context.Context, url string) (int, int, bool) {
	if p.cache == nil {
		return 0, 0, false
	}
	raw, err := p.cache.Get(ctx, CacheKey(url)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			commonlog.Warnf("event=probe_cache action=get status=failed err=%v", err)
		}
		return 0, 0, false
	}
	w, h, ok := parseSize(raw)
	return w, h, ok
}

func (p *HTTPProber) store(ctx context.Context, url string, w, h int) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, CacheKey(url), formatSize(w, h), p.cacheTTL).Err(); err != nil {
		commonlog.Warnf("event=probe_cache action=set status=failed err=%v", err)
	}
}

func CacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func formatSize(w, h int) string {
	return strconv.Itoa(w) + "x" + strconv.Itoa(h)
}

func parseSize(raw string) (int, int, bool) {
	ws, hs, found := strings.Cut(raw, "x")
	if !found {
		return 0, 0, false
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}
