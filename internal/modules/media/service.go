package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-cms/inkwell/internal/models"
	"github.com/inkwell-cms/inkwell/internal/pkg/apperr"
	"github.com/inkwell-cms/inkwell/internal/pkg/pagination"
	"github.com/inkwell-cms/inkwell/internal/pkg/response"
	"github.com/inkwell-cms/inkwell/internal/repository"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

const DefaultMaxBytes = 5 << 20

// ErrTooLarge is returned when an upload exceeds the size limit.
var ErrTooLarge = errors.New("file is too large")

var imageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

type Service struct {
	repo     repository.MediaRepository
	storage  Storage
	maxBytes int64
	client   *http.Client
	logger   *zap.Logger
	now      func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("MediaService")
		}
	}
}

// WithMaxBytes caps upload size; values <= 0 keep the default.
func WithMaxBytes(n int64) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithHTTPClient sets the client used for upload-by-URL.
func WithHTTPClient(c *http.Client) ServiceOption {
	return func(s *Service) { s.client = c }
}

func NewService(repo repository.MediaRepository, storage Storage, opts ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		storage:  storage,
		maxBytes: DefaultMaxBytes,
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: &http.Transport{DialContext: publicDialer()},
		},
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload stores an image read from r.
func (s *Service) Upload(ctx context.Context, actor *models.UserModel, filename string, r io.Reader) (*models.MediaModel, error) {
	payload, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(payload)) > s.maxBytes {
		return nil, ErrTooLarge
	}
	return s.store(ctx, actor, filename, payload)
}

// UploadFromURL downloads an image from a public http(s) URL and stores it.
func (s *Service) UploadFromURL(ctx context.Context, actor *models.UserModel, rawURL string) (*models.MediaModel, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperr.Invalid("url", "must be an http or https URL")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperr.Invalid("url", "%v", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperr.Invalid("url", "could not fetch image: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Invalid("url", "remote server answered %d", resp.StatusCode)
	}
	if resp.ContentLength > s.maxBytes {
		return nil, ErrTooLarge
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		name = "image"
	}
	return s.Upload(ctx, actor, name, resp.Body)
}

func (s *Service) store(ctx context.Context, actor *models.UserModel, filename string, payload []byte) (*models.MediaModel, error) {
	mime := http.DetectContentType(payload)
	ext, ok := imageTypes[mime]
	if !ok {
		return nil, apperr.Invalid("file", "unsupported file type %s", mime)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Invalid("file", "not a readable image: %v", err)
	}

	key := objectKey(s.now(), ext)
	link, err := s.storage.Put(ctx, key, payload, mime)
	if err != nil {
		return nil, err
	}
	m := &models.MediaModel{
		Filename:  cleanFilename(filename, ext),
		URL:       link,
		Storage:   s.storage.Name(),
		ObjectKey: key,
		MimeType:  mime,
		Size:      int64(len(payload)),
		Width:     cfg.Width,
		Height:    cfg.Height,
	}
	if actor != nil {
		m.UploadedBy = &actor.ID
	}
	if err := s.repo.Create(ctx, m); err != nil {
		if derr := s.storage.Delete(ctx, key); derr != nil {
			s.logger.Warn("remove orphaned upload", zap.String("key", key), zap.Error(derr))
		}
		return nil, err
	}
	s.logger.Info("media uploaded", zap.String("id", m.ID), zap.String("key", key), zap.Int64("size", m.Size))
	return m, nil
}

func (s *Service) List(ctx context.Context, query ListQuery, q pagination.Query) ([]models.MediaModel, response.Pagination, error) {
	return s.repo.List(ctx, repository.MediaFilter{
		UploadedBy: query.UploadedBy,
		MimePrefix: query.Type,
		Search:     query.Search,
	}, q)
}

// Delete removes the record and its object. Authors may only delete their own uploads.
func (s *Service) Delete(ctx context.Context, actor *models.UserModel, id string) error {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	owner := actor != nil && m.UploadedBy != nil && *m.UploadedBy == actor.ID
	if !owner && !actor.HasRole(models.RoleEditor) {
		return apperr.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, m.ObjectKey); err != nil {
		s.logger.Warn("delete media object", zap.String("key", m.ObjectKey), zap.Error(err))
	}
	return nil
}

func objectKey(now time.Time, ext string) string {
	return fmt.Sprintf("images/%s/%s.%s", now.Format("2006/01"), strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
}

func cleanFilename(name, ext string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "image." + ext
	}
	if len(name) > 191 {
		name = name[len(name)-191:]
	}
	return name
}

// publicDialer refuses connections to loopback, private and link-local
// addresses so upload-by-URL cannot reach internal services.
func publicDialer() func(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: 10 * time.Second}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, err
		}
		for _, ip := range ips {
			if !isPublic(ip.IP) {
				continue
			}
			return d.DialContext(ctx, network, net.JoinHostPort(ip.IP.String(), port))
		}
		return nil, fmt.Errorf("refusing to fetch from non-public address %s", host)
	}
}

func isPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() || ip.IsMulticast())
}
