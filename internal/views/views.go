package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"strconv"

	"github.com/zombor/billed/internal/app"
	"github.com/zombor/billed/internal/bill"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = map[string]*template.Template{}

var funcs = template.FuncMap{
	"amount": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
}

func init() {
	for _, name := range []string{"bills", "newbill", "receipt", "login", "error", "loading"} {
		pages[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(templatesFS,
			"templates/layout.html", "templates/"+name+".html"))
	}
}

type layout struct {
	ShowNav bool
	Active  string
}

// BillsData is the input of the bills list view
type BillsData struct {
	Bills   []app.DisplayBill
	Loading bool
	Error   string
}

// NewBillData is the input of the new bill view
type NewBillData struct {
	FormID      string
	Form        app.Form
	FileURL     string
	FileName    string
	UploadError string
	Error       string
}

// ReceiptData is the input of the receipt modal
type ReceiptData struct {
	FileURL  string
	FileName string
	Width    int
}

// SortByDateDesc orders bills most recent first on their raw YYYY-MM-DD date
func SortByDateDesc(bills []app.DisplayBill) []app.DisplayBill {
	sorted := make([]app.DisplayBill, len(bills))
	copy(sorted, bills)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RawDate > sorted[j].RawDate
	})
	return sorted
}

// Bills renders the bills list, the loading page or the error page
func Bills(data BillsData) (string, error) {
	switch {
	case data.Loading:
		return Loading()
	case data.Error != "":
		return Error(data.Error)
	}

	return render("bills", struct {
		layout
		Bills []app.DisplayBill
	}{
		layout: layout{ShowNav: true, Active: "bills"},
		Bills:  SortByDateDesc(data.Bills),
	})
}

// NewBill renders the new bill form
func NewBill(data NewBillData) (string, error) {
	return render("newbill", struct {
		layout
		NewBillData
		ExpenseTypes []string
	}{
		layout:       layout{ShowNav: true, Active: "newbill"},
		NewBillData:  data,
		ExpenseTypes: bill.ExpenseTypes,
	})
}

// Receipt renders the receipt of one bill
func Receipt(data ReceiptData) (string, error) {
	if data.Width == 0 {
		data.Width = 500
	}
	return render("receipt", struct {
		layout
		ReceiptData
	}{
		layout:      layout{ShowNav: true, Active: "bills"},
		ReceiptData: data,
	})
}

// Login renders the login page
func Login(errMsg string) (string, error) {
	return render("login", struct {
		layout
		Error string
	}{Error: errMsg})
}

// Error renders a terminal error message
func Error(message string) (string, error) {
	return render("error", struct {
		layout
		Error string
	}{
		layout: layout{ShowNav: true},
		Error:  message,
	})
}

// Loading renders the loading page
func Loading() (string, error) {
	return render("loading", struct{ layout }{})
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}
