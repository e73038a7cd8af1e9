package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/billed/internal/app"
	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/remote"
	"github.com/zombor/billed/internal/session"
)

var formPath = regexp.MustCompile(`^/employee/bill/new/[0-9a-f-]{36}$`)

var _ = Describe("Server", func() {
	var (
		store       *mockStore
		server      *Server
		ghttpServer *ghttp.Server
		browser     *http.Client
	)

	BeforeEach(func() {
		store = newMockStore()
		server = NewServer(store, session.NewMemoryStorage())
		ghttpServer = ghttp.NewServer()
		for _, method := range []string{"GET", "POST"} {
			ghttpServer.RouteToHandler(method, regexp.MustCompile(".*"), server.ServeHTTP)
		}
		browser = newBrowser()
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	get := func(path string) *http.Response {
		resp, err := browser.Get(ghttpServer.URL() + path)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	post := func(path string, values url.Values) *http.Response {
		resp, err := browser.PostForm(ghttpServer.URL()+path, values)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	postFile := func(path, filename string, data []byte) *http.Response {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, err := writer.CreateFormFile("file", filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		resp, err := browser.Post(ghttpServer.URL()+path, writer.FormDataContentType(), &body)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	login := func(email string) {
		resp := post("/login", url.Values{"email": {email}})
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal(app.PathBills))
	}

	openForm := func() string {
		resp := get(app.PathNewBill)
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		location := resp.Header.Get("Location")
		Expect(location).To(MatchRegexp(formPath.String()))
		return location
	}

	Describe("login", func() {
		It("should show the login page to a new browser", func() {
			resp := get("/")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Cookies()).To(ContainElement(HaveField("Name", SessionCookie)))
			Expect(readBody(resp)).To(ContainSubstring(`data-testid="form-employee"`))
		})

		It("should reject an empty email", func() {
			resp := post("/login", url.Values{"email": {""}})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			body := readBody(resp)
			Expect(body).To(ContainSubstring("Veuillez saisir votre email"))
			Expect(body).NotTo(ContainSubstring("email is required"))
		})

		It("should send a logged-in employee to the bills list", func() {
			login("a@a")
			resp := get("/")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal(app.PathBills))
		})

		It("should forget the employee on logout", func() {
			login("a@a")
			resp := post("/logout", nil)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal(app.PathLogin))

			resp = get(app.PathBills)
			resp.Body.Close()
			Expect(resp.Header.Get("Location")).To(Equal(app.PathLogin))
		})
	})

	Describe("GET /employee/bills", func() {
		When("nobody is logged in", func() {
			It("should redirect to the login page without calling the store", func() {
				resp := get(app.PathBills)
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
				Expect(resp.Header.Get("Location")).To(Equal(app.PathLogin))
				Expect(store.listCalls).To(BeEmpty())
			})
		})

		When("the store returns bills", func() {
			BeforeEach(func() {
				store.bills = []bill.Bill{
					{ID: "1", Email: "a@a", Type: "Transports", Name: "old", Amount: 10, Date: "2001-01-01", Status: bill.StatusAccepted, FileURL: "http://f/1.jpg", FileName: "1.jpg"},
					{ID: "2", Email: "a@a", Type: "Transports", Name: "new", Amount: 20, Date: "2004-04-04", Status: bill.StatusPending},
					{ID: "3", Email: "a@a", Type: "Transports", Name: "broken", Amount: 30, Date: "not a date", Status: bill.StatusRefused},
				}
				login("a@a")
			})

			It("should list the session owner's bills", func() {
				resp := get(app.PathBills)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body := readBody(resp)
				Expect(store.listCalls).To(Equal([]remote.ListRequest{{Email: "a@a"}}))
				Expect(body).To(ContainSubstring("4 Avr. 04"))
				Expect(body).To(ContainSubstring("En attente"))
				Expect(body).To(ContainSubstring("Accepté"))
			})

			It("should keep a malformed row with its raw values", func() {
				body := readBody(get(app.PathBills))
				Expect(body).To(ContainSubstring("not a date"))
				Expect(body).To(ContainSubstring(">refused<"))
			})

			It("should order bills most recent first", func() {
				body := readBody(get(app.PathBills))
				Expect(strings.Index(body, "not a date")).To(BeNumerically("<", strings.Index(body, "4 Avr. 04")))
				Expect(strings.Index(body, "4 Avr. 04")).To(BeNumerically("<", strings.Index(body, "1 Jan. 01")))
			})

			It("should link the receipt of bills that have one", func() {
				body := readBody(get(app.PathBills))
				Expect(body).To(ContainSubstring(`data-testid="icon-eye"`))
			})
		})

		DescribeTable("store failures",
			func(code int, message string) {
				store.listErr = &remote.RemoteError{Kind: remote.KindServer, StatusCode: code, Message: message}
				login("a@a")

				resp := get(app.PathBills)
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
				body := readBody(resp)
				Expect(body).To(ContainSubstring(message))
				Expect(body).NotTo(ContainSubstring(`data-testid="tbody"`))
			},
			Entry("not found", 404, "Erreur 404"),
			Entry("server error", 500, "Erreur 500"),
		)
	})

	Describe("new bill button", func() {
		It("should open the new bill route", func() {
			login("a@a")
			resp := post("/employee/bills/new", nil)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal(app.PathNewBill))
		})
	})

	Describe("GET /employee/bills/receipt", func() {
		It("should render the receipt image", func() {
			login("a@a")
			body := readBody(get("/employee/bills/receipt?url=" + url.QueryEscape("http://f/1.jpg") + "&name=1.jpg"))
			Expect(body).To(ContainSubstring(`src="http://f/1.jpg"`))
			Expect(body).To(ContainSubstring(`width="500"`))
			Expect(body).To(ContainSubstring("1.jpg"))
		})
	})

	Describe("new bill form", func() {
		var path string

		BeforeEach(func() {
			login("a@a")
			path = openForm()
		})

		It("should render an empty form", func() {
			resp := get(path)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body := readBody(resp)
			Expect(body).To(ContainSubstring(`data-testid="form-new-bill"`))
			Expect(body).To(ContainSubstring(`value="20"`))
			Expect(body).NotTo(ContainSubstring(`data-testid="file-attached"`))
		})

		It("should not be reachable from another browser", func() {
			other := browser
			browser = newBrowser()
			login("b@b")

			resp := get(path)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal(app.PathNewBill))
			browser = other
		})

		It("should send an unknown form back to a fresh one", func() {
			resp := get(app.PathNewBill + "/00000000-0000-0000-0000-000000000000")
			resp.Body.Close()
			Expect(resp.Header.Get("Location")).To(Equal(app.PathNewBill))
		})

		When("a receipt is attached", func() {
			It("should upload it and show it as attached", func() {
				resp := postFile(path+"/file", "ticket.jpg", []byte("jpeg"))
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body := readBody(resp)
				Expect(body).To(ContainSubstring(`data-testid="file-attached"`))
				Expect(store.createCalls).To(HaveLen(1))
				Expect(store.createCalls[0].Email).To(Equal("a@a"))
				Expect(store.createCalls[0].FileName).To(Equal("ticket.jpg"))
				Expect(store.createCalls[0].Data).To(Equal([]byte("jpeg")))
			})

			It("should pre-fill the form from the scan suggestion", func() {
				store.createResp.Suggestion = &remote.Suggestion{Name: "SNCF", Type: "Transports", Date: "2024-02-28", Amount: 87.5, VAT: "10"}
				body := readBody(postFile(path+"/file", "ticket.jpg", []byte("jpeg")))
				Expect(body).To(ContainSubstring(`value="SNCF"`))
				Expect(body).To(ContainSubstring(`value="2024-02-28"`))
				Expect(body).To(ContainSubstring(`value="87.5"`))
				Expect(body).To(ContainSubstring("<option selected>Transports</option>"))
			})
		})

		When("the receipt has an unsupported extension", func() {
			It("should reject it without calling the store", func() {
				body := readBody(postFile(path+"/file", "notes.txt", []byte("text")))
				Expect(body).To(ContainSubstring(`data-testid="file-error"`))
				Expect(body).To(ContainSubstring("Formats acceptés"))
				Expect(store.createCalls).To(BeEmpty())
			})
		})

		When("the upload fails", func() {
			It("should show the remote message and keep the form open", func() {
				store.createErr = &remote.RemoteError{Kind: remote.KindServer, StatusCode: 500, Message: "Erreur 500"}
				resp := postFile(path+"/file", "ticket.jpg", []byte("jpeg"))
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body := readBody(resp)
				Expect(body).To(ContainSubstring("Erreur 500"))
				Expect(body).NotTo(ContainSubstring(`data-testid="file-attached"`))
			})
		})

		Describe("submitting", func() {
			fields := url.Values{
				"expense-type": {"Restaurants et bars"},
				"expense-name": {"test bill"},
				"datepicker":   {"2002-02-05"},
				"amount":       {"200"},
				"vat":          {"40"},
				"pct":          {"20"},
				"commentary":   {"test commentary"},
			}

			It("should update the uploaded bill and return to the list", func() {
				postFile(path+"/file", "ticket.jpg", []byte("jpeg")).Body.Close()

				resp := post(path, fields)
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
				Expect(resp.Header.Get("Location")).To(Equal(app.PathBills))

				Expect(store.updateCalls).To(HaveLen(1))
				Expect(store.updateCalls[0].Selector).To(Equal("1234"))
				var sent bill.Bill
				Expect(json.Unmarshal([]byte(store.updateCalls[0].Data), &sent)).To(Succeed())
				Expect(sent.Email).To(Equal("a@a"))
				Expect(sent.FileURL).To(Equal("http://store.test/files/1234_ticket.jpg"))
				Expect(sent.Amount).To(Equal(200.0))
				Expect(sent.Status).To(Equal(bill.StatusPending))
			})

			It("should close the form after a successful submit", func() {
				post(path, fields).Body.Close()
				resp := get(path)
				resp.Body.Close()
				Expect(resp.Header.Get("Location")).To(Equal(app.PathNewBill))
			})

			It("should submit without a receipt", func() {
				resp := post(path, fields)
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
				Expect(store.updateCalls[0].Selector).To(BeEmpty())
			})

			When("the update fails", func() {
				BeforeEach(func() {
					store.updateErr = &remote.RemoteError{Kind: remote.KindServer, StatusCode: 500, Message: "Erreur 500"}
				})

				It("should stay on the form with the message and the entered values", func() {
					resp := post(path, fields)
					Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
					body := readBody(resp)
					Expect(body).To(ContainSubstring(`data-testid="form-error"`))
					Expect(body).To(ContainSubstring("Erreur 500"))
					Expect(body).To(ContainSubstring(`value="test bill"`))
				})

				It("should keep the form open for another try", func() {
					post(path, fields).Body.Close()
					resp := get(path)
					Expect(resp.StatusCode).To(Equal(http.StatusOK))
					resp.Body.Close()
				})
			})
		})
	})
})
