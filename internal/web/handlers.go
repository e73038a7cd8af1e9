package web

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/zombor/billed/internal/app"
	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/remote"
	"github.com/zombor/billed/internal/session"
	"github.com/zombor/billed/internal/views"
)

// maxUploadSize bounds receipt uploads
const maxUploadSize = int64(50 << 20)

// writePage writes a rendered view, or a plain 500 when rendering failed
func writePage(w http.ResponseWriter, code int, page string, err error) {
	if err != nil {
		slog.Error("Error rendering page", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	io.WriteString(w, page)
}

// errorMessage is the text shown to the employee for err
func errorMessage(err error) string {
	var re *remote.RemoteError
	if errors.As(err, &re) {
		return re.Message
	}
	switch {
	case errors.Is(err, app.ErrNoFile):
		return "Aucun fichier sélectionné"
	case errors.Is(err, app.ErrUnsupportedFile):
		return "Formats acceptés : jpg, jpeg, png, heic, heif, pdf"
	case errors.Is(err, app.ErrEmailRequired):
		return "Veuillez saisir votre email"
	}
	return err.Error()
}

// errorStatus is the status code answering a request that failed with err
func errorStatus(err error) int {
	var re *remote.RemoteError
	if errors.As(err, &re) {
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

// currentUser returns the logged-in user, redirecting to the login page when there is none
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (*session.Provider, string, bool) {
	provider, sid := s.provider(w, r)
	if _, err := provider.Current(); err != nil {
		if !errors.Is(err, session.ErrNotAuthenticated) {
			slog.Error("Error reading session", "error", err)
		}
		redirectTo(w, r, app.PathLogin)
		return nil, "", false
	}
	return provider, sid, true
}

// handleLoginPage serves the login page, or the bills list to a logged-in employee
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	provider, _ := s.provider(w, r)
	if _, err := provider.Current(); err == nil {
		redirectTo(w, r, app.PathBills)
		return
	}
	page, err := views.Login("")
	writePage(w, http.StatusOK, page, err)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	provider, _ := s.provider(w, r)
	nav := &recordingNavigator{}

	if err := app.NewLogin(provider, nav).HandleSubmitEmployee(r.FormValue("email")); err != nil {
		page, renderErr := views.Login(errorMessage(err))
		writePage(w, http.StatusBadRequest, page, renderErr)
		return
	}
	redirectTo(w, r, nav.take())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	provider, _ := s.provider(w, r)
	nav := &recordingNavigator{}

	if err := app.NewLogin(provider, nav).HandleLogout(); err != nil {
		slog.Error("Error logging out", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	redirectTo(w, r, nav.take())
}

// handleBills fetches and renders the employee's bills
func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	provider, _, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	bills, err := app.NewBills(s.store, provider, &recordingNavigator{}).Fetch(r.Context())
	if err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			redirectTo(w, r, app.PathLogin)
			return
		}
		slog.Error("Error fetching bills", "error", err)
		page, renderErr := views.Bills(views.BillsData{Error: errorMessage(err)})
		writePage(w, errorStatus(err), page, renderErr)
		return
	}

	page, err := views.Bills(views.BillsData{Bills: bills})
	writePage(w, http.StatusOK, page, err)
}

func (s *Server) handleClickNewBill(w http.ResponseWriter, r *http.Request) {
	provider, _, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	nav := &recordingNavigator{}
	app.NewBills(s.store, provider, nav).HandleClickNewBill()
	redirectTo(w, r, nav.take())
}

// handleReceipt renders the receipt opened from the eye icon of a bill
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.currentUser(w, r); !ok {
		return
	}

	q := r.URL.Query()
	width, _ := strconv.Atoi(q.Get("width"))
	page, err := views.Receipt(views.ReceiptData{
		FileURL:  q.Get("url"),
		FileName: q.Get("name"),
		Width:    width,
	})
	writePage(w, http.StatusOK, page, err)
}

// handleNewForm opens a fresh new bill form
func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	provider, sid, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	id := s.forms.open(sid, func(nav app.Navigator) *app.NewBill {
		return app.NewNewBill(s.store, provider, nav)
	})
	redirectTo(w, r, app.PathNewBill+"/"+id)
}

// form returns the open form named in the path, redirecting to a fresh form when it is gone
func (s *Server) form(w http.ResponseWriter, r *http.Request) (*formEntry, bool) {
	_, sid, ok := s.currentUser(w, r)
	if !ok {
		return nil, false
	}
	entry, ok := s.forms.get(r.PathValue("form"), sid)
	if !ok {
		redirectTo(w, r, app.PathNewBill)
		return nil, false
	}
	return entry, true
}

// renderForm renders an open form with its held upload state
func renderForm(w http.ResponseWriter, code int, id string, entry *formEntry, uploadErr, submitErr string) {
	page, err := views.NewBill(views.NewBillData{
		FormID:      id,
		Form:        entry.getDraft(),
		FileURL:     entry.container.FileURL(),
		FileName:    entry.container.FileName(),
		UploadError: uploadErr,
		Error:       submitErr,
	})
	writePage(w, code, page, err)
}

func (s *Server) handleShowForm(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.form(w, r)
	if !ok {
		return
	}
	renderForm(w, http.StatusOK, r.PathValue("form"), entry, "", "")
}

// readFiles collects the files posted in the "file" field
func readFiles(form *multipart.Form) ([]app.File, error) {
	if form == nil {
		return nil, nil
	}
	var files []app.File
	for _, header := range form.File["file"] {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, app.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

// handleFileChange uploads the chosen receipt as soon as it is posted
func (s *Server) handleFileChange(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.form(w, r)
	if !ok {
		return
	}
	id := r.PathValue("form")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		renderForm(w, http.StatusBadRequest, id, entry, "Fichier illisible", "")
		return
	}
	files, err := readFiles(r.MultipartForm)
	if err != nil {
		slog.Error("Error reading uploaded file", "error", err)
		renderForm(w, http.StatusBadRequest, id, entry, "Fichier illisible", "")
		return
	}

	switch result := entry.container.OnFileChange(r.Context(), app.FileInput{Files: files}).(type) {
	case app.Uploaded:
		if result.Suggestion != nil {
			entry.setDraft(prefill(entry.getDraft(), result.Suggestion))
		}
		renderForm(w, http.StatusOK, id, entry, "", "")
	case app.UploadFailed:
		renderForm(w, http.StatusOK, id, entry, errorMessage(result.Reason), "")
	}
}

// prefill copies scanned values into the empty fields of a draft
func prefill(draft app.Form, sg *remote.Suggestion) app.Form {
	if draft.Name == "" {
		draft.Name = sg.Name
	}
	if draft.Type == "" && bill.IsExpenseType(sg.Type) {
		draft.Type = sg.Type
	}
	if draft.Date == "" {
		draft.Date = sg.Date
	}
	if draft.Amount == "" && sg.Amount > 0 {
		draft.Amount = strconv.FormatFloat(sg.Amount, 'f', -1, 64)
	}
	if draft.VAT == "" {
		draft.VAT = sg.VAT
	}
	return draft
}

// handleSubmit sends the bill and returns to the list, or re-renders the form with the failure
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.form(w, r)
	if !ok {
		return
	}
	id := r.PathValue("form")

	form := app.Form{
		Type:       r.FormValue("expense-type"),
		Name:       r.FormValue("expense-name"),
		Date:       r.FormValue("datepicker"),
		Amount:     r.FormValue("amount"),
		VAT:        r.FormValue("vat"),
		Pct:        r.FormValue("pct"),
		Commentary: r.FormValue("commentary"),
	}
	entry.setDraft(form)

	if err := entry.container.OnSubmit(r.Context(), form); err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			redirectTo(w, r, app.PathLogin)
			return
		}
		renderForm(w, errorStatus(err), id, entry, "", errorMessage(err))
		return
	}

	s.forms.close(id)
	redirectTo(w, r, entry.navigator.take())
}
