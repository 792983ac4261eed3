package export

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rpattn/catalog-export/internal/domain"
	"github.com/rpattn/catalog-export/internal/fields"
	"github.com/rpattn/catalog-export/internal/metrics"
	"github.com/rpattn/catalog-export/internal/repository"
	"github.com/rpattn/catalog-export/internal/serializer"
)

// ErrNotFound covers both unknown and deactivated download hashes.
var ErrNotFound = eris.New("export profile not found")

const defaultPreviewLimit = 20

type Service struct {
	profiles   repository.ProfileRepository
	catalog    repository.CatalogRepository
	currencies repository.CurrencyRepository
	users      repository.ClientUserRepository
	relations  repository.RelationRepository
	registry   *fields.Registry

	chunkSize       int
	previewLimit    int
	defaultCurrency string
	metrics         *metrics.Export
	now             func() time.Time
}

type Option func(*Service)

func WithChunkSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

func WithPreviewLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.previewLimit = limit
		}
	}
}

// WithDefaultCurrency sets the currency code used when neither the request
// nor the profile picks one.
func WithDefaultCurrency(code string) Option {
	return func(s *Service) {
		s.defaultCurrency = strings.TrimSpace(code)
	}
}

func WithMetrics(m *metrics.Export) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(
	profiles repository.ProfileRepository,
	catalog repository.CatalogRepository,
	currencies repository.CurrencyRepository,
	users repository.ClientUserRepository,
	relations repository.RelationRepository,
	registry *fields.Registry,
	opts ...Option,
) *Service {
	service := &Service{
		profiles:     profiles,
		catalog:      catalog,
		currencies:   currencies,
		users:        users,
		relations:    relations,
		registry:     registry,
		chunkSize:    defaultChunkSize,
		previewLimit: defaultPreviewLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Download is a validated export ready to be streamed.
type Download struct {
	Profile     domain.ExportProfile
	Filename    string
	ContentType string

	service *Service
	runner  *Runner
	stamp   bool
}

// OpenDownload looks up an active profile by hash and prepares its run.
// currencyCode, when set, overrides the profile's currency.
func (s *Service) OpenDownload(ctx context.Context, hash, currencyCode string) (*Download, error) {
	profile, err := s.ActiveProfile(ctx, hash)
	if err != nil {
		return nil, err
	}
	download, err := s.OpenProfile(ctx, profile, currencyCode)
	if err != nil {
		return nil, err
	}
	download.stamp = true
	return download, nil
}

// ActiveProfile returns the profile behind a download hash. Unknown and
// deactivated hashes both yield ErrNotFound.
func (s *Service) ActiveProfile(ctx context.Context, hash string) (domain.ExportProfile, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return domain.ExportProfile{}, ErrNotFound
	}
	profile, err := s.profiles.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ExportProfile{}, ErrNotFound
		}
		return domain.ExportProfile{}, eris.Wrap(err, "export: load profile")
	}
	if !profile.IsActive {
		zap.L().Info("download of inactive profile refused", zap.Int64("profile_id", profile.ID))
		return domain.ExportProfile{}, ErrNotFound
	}
	return profile, nil
}

// OpenProfile prepares a run for a profile that need not be stored. Such a
// download never stamps last_downloaded_at.
func (s *Service) OpenProfile(ctx context.Context, profile domain.ExportProfile, currencyCode string) (*Download, error) {
	if !profile.Format.Valid() {
		problems := &domain.ValidationError{}
		problems.Add("format", "unsupported format %q", profile.Format)
		return nil, problems
	}
	ec, table, err := s.buildContext(ctx, profile.ClientUserID, profile.CurrencyID, currencyCode, false)
	if err != nil {
		return nil, err
	}
	runner := NewRunner(s.catalog, s.relations, s.registry, s.chunkSize)
	if err := runner.Prepare(Plan{
		Filters:    profile.Filters,
		Fields:     profile.Fields,
		Context:    ec,
		Currencies: table,
	}); err != nil {
		return nil, err
	}
	return &Download{
		Profile:     profile,
		Filename:    fileName(profile),
		ContentType: serializer.ContentType(profile.Format),
		service:     s,
		runner:      runner,
	}, nil
}

// Stream generates the file into w. last_downloaded_at is stamped only after
// the encoder closed cleanly.
func (d *Download) Stream(ctx context.Context, w io.Writer) (Stats, error) {
	s := d.service
	format := d.Profile.Format
	start := s.now()
	enc, err := serializer.New(format, w)
	if err != nil {
		return Stats{}, err
	}

	stats, err := d.runner.Run(ctx, enc)
	elapsed := s.now().Sub(start)
	if err != nil {
		s.metrics.ObserveRun(string(format), "full", "failed", stats.Emitted, elapsed)
		zap.L().Error("export run failed",
			zap.Int64("profile_id", d.Profile.ID),
			zap.String("format", string(format)),
			zap.Int("rows", stats.Emitted),
			zap.Error(err),
		)
		return stats, err
	}
	s.metrics.ObserveRun(string(format), "full", "ok", stats.Emitted, elapsed)
	zap.L().Info("export run finished",
		zap.Int64("profile_id", d.Profile.ID),
		zap.String("format", string(format)),
		zap.Int("rows", stats.Emitted),
		zap.Int("chunks", stats.Chunks),
		zap.Duration("elapsed", elapsed),
	)

	if d.stamp {
		if err := s.profiles.MarkDownloaded(ctx, d.Profile.ID, s.now().UTC()); err != nil {
			zap.L().Warn("failed to stamp last_downloaded_at", zap.Int64("profile_id", d.Profile.ID), zap.Error(err))
		}
	}
	return stats, nil
}

// Preview runs a transient definition with a row cap and no side effects.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (PreviewResult, error) {
	limit := s.previewLimit
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}
	ec, table, err := s.buildContext(ctx, req.ClientUserID, nil, req.Currency, true)
	if err != nil {
		return PreviewResult{}, err
	}
	runner := NewRunner(s.catalog, s.relations, s.registry, s.chunkSize)
	if err := runner.Prepare(Plan{
		Filters:    req.Filters,
		Fields:     req.Fields,
		Context:    ec,
		Currencies: table,
		Limit:      limit,
	}); err != nil {
		return PreviewResult{}, err
	}

	start := s.now()
	enc := &previewEncoder{}
	stats, err := runner.Run(ctx, enc)
	elapsed := s.now().Sub(start)
	if err != nil {
		s.metrics.ObserveRun(string(domain.ExportFormatJSON), "preview", "failed", stats.Emitted, elapsed)
		return PreviewResult{}, err
	}
	s.metrics.ObserveRun(string(domain.ExportFormatJSON), "preview", "ok", stats.Emitted, elapsed)

	return PreviewResult{
		Total:  stats.Matched,
		Data:   enc.rows,
		Labels: enc.labels(),
	}, nil
}

// FieldDescriptor describes one selectable column for the admin UI.
type FieldDescriptor struct {
	domain.FieldSpec
	Operators []domain.Operator `json:"operators"`
}

// Fields lists the registry in registry order.
func (s *Service) Fields() []FieldDescriptor {
	specs := s.registry.Specs()
	out := make([]FieldDescriptor, 0, len(specs))
	for _, spec := range specs {
		out = append(out, FieldDescriptor{FieldSpec: spec, Operators: fields.Operators(spec.Type)})
	}
	return out
}

// buildContext assembles the immutable audience of one run. A missing client
// user is a validation problem for previews and only a warning for downloads.
func (s *Service) buildContext(
	ctx context.Context,
	clientUserID *int64,
	currencyID *int64,
	currencyCode string,
	strictUser bool,
) (domain.ExportContext, domain.CurrencyTable, error) {
	list, err := s.currencies.List(ctx)
	if err != nil {
		return domain.ExportContext{}, domain.CurrencyTable{}, eris.Wrap(err, "export: load currencies")
	}
	table := domain.NewCurrencyTable(list)

	ec := domain.ExportContext{Currency: table.Base()}
	switch {
	case strings.TrimSpace(currencyCode) != "":
		currency, ok := table.ByCode(currencyCode)
		if !ok {
			problems := &domain.ValidationError{}
			problems.Add("currency", "unknown currency %q", currencyCode)
			return domain.ExportContext{}, domain.CurrencyTable{}, problems
		}
		ec.Currency = currency
	case currencyID != nil:
		if currency, ok := table.ByID(*currencyID); ok {
			ec.Currency = currency
		} else {
			zap.L().Warn("profile currency no longer exists, using base", zap.Int64("currency_id", *currencyID))
		}
	case s.defaultCurrency != "":
		if currency, ok := table.ByCode(s.defaultCurrency); ok {
			ec.Currency = currency
		}
	}

	if clientUserID != nil {
		user, err := s.users.GetByID(ctx, *clientUserID)
		switch {
		case err == nil:
			ec.ClientUser = &user
		case errors.Is(err, repository.ErrNotFound) && strictUser:
			problems := &domain.ValidationError{}
			problems.Add("client_user_id", "client user %d does not exist", *clientUserID)
			return domain.ExportContext{}, domain.CurrencyTable{}, problems
		case errors.Is(err, repository.ErrNotFound):
			zap.L().Warn("profile client user no longer exists, exporting without personalised fields",
				zap.Int64("client_user_id", *clientUserID))
		default:
			return domain.ExportContext{}, domain.CurrencyTable{}, eris.Wrap(err, "export: load client user")
		}
	}
	return ec, table, nil
}

func fileName(profile domain.ExportProfile) string {
	return sanitizeFileComponent(profile.Name) + "." + serializer.Extension(profile.Format)
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	builder := strings.Builder{}
	lastDash := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			builder.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				builder.WriteRune('-')
				lastDash = true
			}
		}
	}
	result := strings.Trim(builder.String(), "-")
	if result == "" {
		return "export"
	}
	return result
}

// countingWriter tracks whether any byte reached the client.
type countingWriter struct {
	writer io.Writer
	count  int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.writer.Write(p)
	c.count += int64(n)
	return n, err
}
