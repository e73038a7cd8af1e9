package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/remote"
)

var (
	// ErrNoFile is the upload failure reason when no file was selected
	ErrNoFile = errors.New("no file selected")
	// ErrUnsupportedFile is the upload failure reason for a file extension the store does not accept
	ErrUnsupportedFile = errors.New("unsupported file type")
)

// acceptedExtensions are the receipt formats the store can turn into a displayable image
var acceptedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
	".heif": true,
	".pdf":  true,
}

// FormState is the phase of a new bill form
type FormState int

const (
	StateEmpty FormState = iota
	StateFileAttached
	StateSubmitted
)

func (s FormState) String() string {
	switch s {
	case StateFileAttached:
		return "file_attached"
	case StateSubmitted:
		return "submitted"
	default:
		return "empty"
	}
}

// File is one file picked in the file input
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileInput is the change event of the file input
type FileInput struct {
	Files []File
}

// UploadResult is the outcome of the upload phase: Uploaded or UploadFailed
type UploadResult interface {
	isUploadResult()
}

// Uploaded is a successful upload
type Uploaded struct {
	FileURL    string
	FileName   string
	ID         string
	Suggestion *remote.Suggestion
}

// UploadFailed is a failed upload
type UploadFailed struct {
	Reason error
}

func (Uploaded) isUploadResult()     {}
func (UploadFailed) isUploadResult() {}

// Form holds the raw values of the new bill form
type Form struct {
	Type       string
	Name       string
	Date       string
	Amount     string
	VAT        string
	Pct        string
	Commentary string
}

// NewBill is the container behind the new bill form.
// One instance holds the state of one form.
type NewBill struct {
	store     remote.Store
	session   SessionProvider
	navigator Navigator

	mu       sync.Mutex
	fileURL  string
	fileName string
	billID   string
	upload   UploadResult
	state    FormState
}

// NewNewBill creates a new NewBill container with an empty form
func NewNewBill(store remote.Store, session SessionProvider, navigator Navigator) *NewBill {
	return &NewBill{
		store:     store,
		session:   session,
		navigator: navigator,
	}
}

// FileURL returns the hosted receipt URL, empty until an upload succeeds
func (n *NewBill) FileURL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fileURL
}

// FileName returns the receipt file name echoed by the store
func (n *NewBill) FileName() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fileName
}

// BillID returns the id assigned by the store on upload
func (n *NewBill) BillID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.billID
}

// State returns the current form phase
func (n *NewBill) State() FormState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// LastUpload returns the result of the last upload, or nil if none happened
func (n *NewBill) LastUpload() UploadResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.upload
}

// OnFileChange uploads the first selected file right away.
// Failures are logged and returned as UploadFailed, never as an error.
func (n *NewBill) OnFileChange(ctx context.Context, in FileInput) UploadResult {
	result := n.uploadFile(ctx, in)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.upload = result
	if up, ok := result.(Uploaded); ok {
		n.fileURL = up.FileURL
		n.fileName = up.FileName
		n.billID = up.ID
		n.state = StateFileAttached
	}
	return result
}

func (n *NewBill) uploadFile(ctx context.Context, in FileInput) UploadResult {
	if len(in.Files) == 0 {
		return UploadFailed{Reason: ErrNoFile}
	}
	file := in.Files[0]
	name := baseName(file.Name)

	if !acceptedExtensions[strings.ToLower(filepath.Ext(name))] {
		slog.Warn("Rejected receipt file", "filename", name)
		return UploadFailed{Reason: fmt.Errorf("%w: %s", ErrUnsupportedFile, name)}
	}

	user, err := n.session.Current()
	if err != nil {
		slog.Error("Failed to read session for upload", "error", err)
		return UploadFailed{Reason: fmt.Errorf("getting session: %w", err)}
	}

	resp, err := n.store.Bills().Create(ctx, remote.CreateRequest{
		FileName:    name,
		ContentType: file.ContentType,
		Data:        file.Data,
		Email:       user.Email,
	})
	if err != nil {
		slog.Error("Failed to upload receipt", "filename", name, "error", err)
		return UploadFailed{Reason: err}
	}

	return Uploaded{
		FileURL:    resp.FileURL,
		FileName:   resp.FileName,
		ID:         resp.ID,
		Suggestion: resp.Suggestion,
	}
}

// OnSubmit sends the full bill, reusing the receipt of the upload phase,
// and navigates back to the bills list on success.
// A form without a successful upload is submitted with empty file fields.
func (n *NewBill) OnSubmit(ctx context.Context, form Form) error {
	user, err := n.session.Current()
	if err != nil {
		return fmt.Errorf("getting session: %w", err)
	}

	n.mu.Lock()
	record := bill.Bill{
		Email:      user.Email,
		Type:       form.Type,
		Name:       form.Name,
		Amount:     parseAmount(form.Amount),
		Date:       form.Date,
		VAT:        form.VAT,
		Pct:        parsePct(form.Pct),
		Commentary: form.Commentary,
		Status:     bill.StatusPending,
	}
	// The receipt held from the last successful upload is reused even if a later upload failed.
	if n.state == StateFileAttached {
		record.FileURL = n.fileURL
		record.FileName = n.fileName
	}
	switch up := n.upload.(type) {
	case UploadFailed:
		slog.Warn("Submitting bill after failed upload", "reason", up.Reason, "receipt_held", n.state == StateFileAttached)
	case nil:
		slog.Warn("Submitting bill without receipt")
	}
	selector := n.billID
	n.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding bill: %w", err)
	}

	if _, err := n.store.Bills().Update(ctx, remote.UpdateRequest{
		Data:     string(data),
		Selector: selector,
	}); err != nil {
		slog.Error("Failed to submit bill", "bill_id", selector, "error", err)
		return fmt.Errorf("updating bill: %w", err)
	}

	n.mu.Lock()
	n.state = StateSubmitted
	n.mu.Unlock()

	n.navigator.OnNavigate(PathBills)
	return nil
}

// baseName strips any directory, including browser-style "C:\fakepath\" prefixes
func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")), 64)
	if err != nil {
		return 0
	}
	return v
}

func parsePct(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return bill.DefaultPct
	}
	return v
}
