package app

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/remote"
	"github.com/zombor/billed/internal/session"
)

var _ = Describe("Bills", func() {
	var (
		store     *mockStore
		navigator *mockNavigator
		provider  SessionProvider
		container *Bills
	)

	BeforeEach(func() {
		store = newMockStore()
		navigator = &mockNavigator{}
		provider = employeeSession("e@e")
	})

	JustBeforeEach(func() {
		container = NewBills(store, provider, navigator)
	})

	Describe("HandleClickNewBill", func() {
		It("should navigate to the new bill form", func() {
			container.HandleClickNewBill()
			Expect(navigator.paths).To(Equal([]string{PathNewBill}))
		})
	})

	Describe("Fetch", func() {
		var (
			result []DisplayBill
			err    error
		)

		JustBeforeEach(func() {
			result, err = container.Fetch(context.Background())
		})

		When("the store returns bills", func() {
			BeforeEach(func() {
				store.bills = []bill.Bill{
					{ID: "a", Date: "2004-04-04", Status: bill.StatusPending},
					{ID: "b", Date: "2003-03-03", Status: bill.StatusAccepted},
					{ID: "c", Date: "2002-02-02", Status: bill.StatusRefused},
				}
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should list once with the session email", func() {
				Expect(store.listCalls).To(Equal([]remote.ListRequest{{Email: "e@e"}}))
			})

			It("should format dates and statuses", func() {
				Expect(result).To(HaveLen(3))
				Expect(result[0].DisplayDate).To(Equal("4 Avr. 04"))
				Expect(result[0].StatusLabel).To(Equal("En attente"))
				Expect(result[1].StatusLabel).To(Equal("Accepté"))
				Expect(result[2].StatusLabel).To(Equal("Refusé"))
			})

			It("should keep the raw date for ordering", func() {
				Expect(result[0].RawDate).To(Equal("2004-04-04"))
				Expect(result[0].Bill.Date).To(Equal("2004-04-04"))
			})
		})

		When("one bill has a malformed date", func() {
			BeforeEach(func() {
				store.bills = []bill.Bill{
					{ID: "good", Date: "2004-04-04", Status: bill.StatusPending},
					{ID: "bad", Name: "broken", Date: "not-a-date", Status: bill.StatusRefused},
				}
			})

			It("should keep every row", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(HaveLen(2))
			})

			It("should return the bad row with its raw fields", func() {
				bad := result[1]
				Expect(bad.ID).To(Equal("bad"))
				Expect(bad.Name).To(Equal("broken"))
				Expect(bad.DisplayDate).To(Equal("not-a-date"))
				Expect(bad.StatusLabel).To(Equal("refused"))
				Expect(bad.Formatted).To(BeFalse())
			})

			It("should still format the good row", func() {
				Expect(result[0].Formatted).To(BeTrue())
				Expect(result[0].DisplayDate).To(Equal("4 Avr. 04"))
			})
		})

		When("the store has no bills", func() {
			It("should return an empty list", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(BeEmpty())
			})
		})

		When("the list call fails", func() {
			BeforeEach(func() {
				store.listErr = &remote.RemoteError{Kind: remote.KindNotFound, StatusCode: 404, Message: "Erreur 404"}
			})

			It("should return the remote error", func() {
				Expect(err).To(MatchError("Erreur 404"))
				Expect(remote.IsKind(err, remote.KindNotFound)).To(BeTrue())
				Expect(result).To(BeNil())
			})

			It("should attempt the call only once", func() {
				Expect(store.listCalls).To(HaveLen(1))
			})
		})

		When("nobody is logged in", func() {
			BeforeEach(func() {
				provider = session.NewProvider(session.NewMemoryStorage())
			})

			It("should return ErrNotAuthenticated without calling the store", func() {
				Expect(errors.Is(err, session.ErrNotAuthenticated)).To(BeTrue())
				Expect(store.listCalls).To(BeEmpty())
			})
		})
	})
})
