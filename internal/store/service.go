package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/scanning"
)

// IDGenerator generates unique IDs for bills
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Upload is a receipt sent by the upload phase of a new bill
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
	Email       string
}

// Suggestion is what the scanner read off an uploaded receipt
type Suggestion struct {
	Name   string  `json:"name"`
	Type   string  `json:"type,omitempty"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	VAT    string  `json:"vat"`
}

// Created is returned by CreateBill
type Created struct {
	ID         string      `json:"id"`
	FileURL    string      `json:"fileUrl"`
	FileName   string      `json:"fileName"`
	Key        string      `json:"key"`
	Suggestion *Suggestion `json:"suggestion,omitempty"`
}

// Service handles bill operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	publicURL   string
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service. scanner may be nil to disable receipt scanning.
// publicURL is the address clients use to reach this store, used to build file URLs.
func NewService(db DB, scanner scanning.Scanner, storage Storage, publicURL string) *Service {
	return NewServiceWithDeps(db, scanner, storage, publicURL, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, publicURL string, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		publicURL:   strings.TrimSuffix(publicURL, "/"),
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and truncates phone-generated names
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeChars.ReplaceAllString(base, "")
	base = spaces.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// fileURL is the public URL serving the file stored under key
func (s *Service) fileURL(key string) string {
	return s.publicURL + "/files/" + key
}

// CreateBill stores a receipt and creates a pending bill holding it
func (s *Service) CreateBill(ctx context.Context, up Upload) (*Created, error) {
	if len(up.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalid)
	}
	if up.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalid)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()
	fileName := filepath.Base(up.FileName)

	data, contentType, converted, err := scanning.NormalizeReceipt(up.Data, up.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cleanName := sanitizeFilename(fileName)
	if converted {
		cleanName = strings.TrimSuffix(cleanName, filepath.Ext(cleanName)) + ".png"
	}

	key, err := s.storage.Save(ctx, fmt.Sprintf("%s_%s", id, cleanName), data, contentType)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	record := &Record{
		Bill: bill.Bill{
			ID:       id,
			Email:    up.Email,
			Pct:      bill.DefaultPct,
			FileURL:  s.fileURL(key),
			FileName: fileName,
			Status:   bill.StatusPending,
		},
		ContentType: contentType,
		FileKey:     key,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveBill(record); err != nil {
		// Clean up file if database save fails
		s.storage.Delete(ctx, key)
		return nil, fmt.Errorf("saving bill to database: %w", err)
	}

	return &Created{
		ID:         id,
		FileURL:    record.FileURL,
		FileName:   fileName,
		Key:        key,
		Suggestion: s.scan(ctx, up.Data, up.ContentType),
	}, nil
}

// scan reads suggested values off a receipt. Scanning is best effort.
func (s *Service) scan(ctx context.Context, data []byte, contentType string) *Suggestion {
	if s.scanner == nil {
		return nil
	}
	receipt, err := s.scanner.ScanReceipt(ctx, data, contentType)
	if err != nil {
		slog.Warn("Failed to scan receipt",
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil
	}
	if receipt == nil {
		return nil
	}

	suggestion := &Suggestion{
		Name:   receipt.Name,
		Type:   receipt.Type,
		Date:   receipt.Date,
		Amount: receipt.Amount,
	}
	if receipt.VAT > 0 {
		suggestion.VAT = fmt.Sprintf("%g", receipt.VAT)
	}
	return suggestion
}

// validate checks the employee-supplied fields of an update
func validate(b bill.Bill) error {
	var problems []string
	if b.Email == "" {
		problems = append(problems, "email is required")
	}
	if !bill.IsExpenseType(b.Type) {
		problems = append(problems, fmt.Sprintf("unknown expense type %q", b.Type))
	}
	if _, err := time.Parse(bill.DateLayout, b.Date); err != nil {
		problems = append(problems, fmt.Sprintf("date %q is not YYYY-MM-DD", b.Date))
	}
	if b.Amount < 0 {
		problems = append(problems, "amount must not be negative")
	}
	if b.Pct < 0 || b.Pct > 100 {
		problems = append(problems, "pct must be between 0 and 100")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, ", "))
	}
	return nil
}

// UpdateBill upserts the bill identified by selector.
// An empty selector creates a new bill. The review status is never taken from the request.
func (s *Service) UpdateBill(ctx context.Context, selector string, b bill.Bill) (*Record, error) {
	if err := validate(b); err != nil {
		return nil, err
	}
	now := s.timeSource.Now()

	var existing *Record
	if selector != "" {
		var err error
		existing, err = s.db.GetBill(selector)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("getting bill: %w", err)
		}
	}

	record := &Record{Bill: b, CreatedAt: now, UpdatedAt: now}
	record.Status = bill.StatusPending

	switch {
	case existing != nil:
		if existing.Email != "" && existing.Email != b.Email {
			return nil, fmt.Errorf("%w: bill %s belongs to another user", ErrInvalid, selector)
		}
		record.ID = existing.ID
		record.Status = existing.Status
		record.CreatedAt = existing.CreatedAt
		record.ContentType = existing.ContentType
		record.FileKey = existing.FileKey
		if record.FileURL == "" {
			record.FileURL = existing.FileURL
			record.FileName = existing.FileName
		}
	case selector != "":
		record.ID = selector
	default:
		record.ID = s.idGenerator.Generate()
	}

	if err := s.db.SaveBill(record); err != nil {
		return nil, fmt.Errorf("saving bill: %w", err)
	}
	return record, nil
}

// SetStatus records the outcome of the administrative review
func (s *Service) SetStatus(id string, status bill.Status) (*Record, error) {
	switch status {
	case bill.StatusPending, bill.StatusAccepted, bill.StatusRefused:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, status)
	}

	record, err := s.db.GetBill(id)
	if err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}
	record.Status = status
	record.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveBill(record); err != nil {
		return nil, fmt.Errorf("saving bill: %w", err)
	}
	return record, nil
}

// GetBill retrieves a bill by ID
func (s *Service) GetBill(id string) (*Record, error) {
	record, err := s.db.GetBill(id)
	if err != nil {
		return nil, fmt.Errorf("getting bill: %w", err)
	}
	return record, nil
}

// ListBills returns the bills owned by email, or every bill when email is empty.
// An owner's listing leaves out drafts whose upload was never followed by a submit; they have no date.
func (s *Service) ListBills(email string) ([]bill.Bill, error) {
	records, err := s.db.ListBills()
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}

	bills := make([]bill.Bill, 0, len(records))
	for _, r := range records {
		if email != "" && (r.Email != email || r.Date == "") {
			continue
		}
		bills = append(bills, r.Bill)
	}
	return bills, nil
}

// DeleteBill removes a bill and its receipt
func (s *Service) DeleteBill(ctx context.Context, id string) error {
	record, err := s.db.GetBill(id)
	if err != nil {
		return fmt.Errorf("getting bill for deletion: %w", err)
	}

	if record.FileKey != "" {
		if err := s.storage.Delete(ctx, record.FileKey); err != nil {
			// Log error but continue with database deletion
			slog.Warn("Failed to delete file", "key", record.FileKey, "error", err)
		}
	}

	if err := s.db.DeleteBill(id); err != nil {
		return fmt.Errorf("deleting bill from database: %w", err)
	}
	return nil
}

// GetFile retrieves a stored receipt and its content type
func (s *Service) GetFile(ctx context.Context, key string) ([]byte, string, error) {
	data, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("getting file: %w", err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(key)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}
