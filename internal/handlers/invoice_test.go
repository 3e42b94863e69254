package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/transfret/backoffice/internal/auth"
	"github.com/transfret/backoffice/internal/models"
	"github.com/transfret/backoffice/internal/services"
)

type fakeMail struct{ fail bool }

func (f fakeMail) SendDocument(to, subject, body, attachmentPath string) error {
	if f.fail {
		return errFake
	}
	return nil
}

var errFake = &mailError{}

type mailError struct{}

func (*mailError) Error() string { return "smtp down" }

func TestInvoiceCreateFromTransportSlipAndList(t *testing.T) {
	conn := setupHandlerDB(t)
	h := NewInvoiceHandler(conn, services.NewBillingService(conn, nil), fakeMail{})
	user := seedUser(t, conn, models.RoleCompta, "compta@test", "secret")
	client := seedTestClient(t, conn)

	slip := models.TransportSlip{
		ClientID: client.ID, VilleChargement: "Lyon", VilleLivraison: "Lille",
		DateChargement: time.Now(), PrixHT: 850, Status: models.SlipStatusDelivered,
	}
	if err := conn.Create(&slip).Error; err != nil {
		t.Fatalf("slip: %v", err)
	}

	body := `{"transport_slip_id":` + strconv.Itoa(int(slip.ID)) + `,"tva_rate":20}`
	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(auth.WithUserID(req.Context(), user.ID))
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var created models.Invoice
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.MontantHT != 850 || created.TVA != 170 || created.MontantTTC != 1020 {
		t.Fatalf("unexpected amounts: %+v", created)
	}
	if created.Statut != models.InvoiceStatusEnAttente {
		t.Fatalf("expected en_attente got %s", created.Statut)
	}

	// List JSON
	listReq := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	listW := httptest.NewRecorder()
	h.List(listW, listReq)
	if listW.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", listW.Code)
	}
	var list struct {
		Items []models.Invoice `json:"items"`
		Total int64            `json:"total"`
	}
	if err := json.Unmarshal(listW.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || list.Total != 1 {
		t.Fatalf("unexpected list: %#v", list)
	}
}

func TestInvoiceCreateValidation(t *testing.T) {
	conn := setupHandlerDB(t)
	h := NewInvoiceHandler(conn, services.NewBillingService(conn, nil), fakeMail{})
	user := seedUser(t, conn, models.RoleCompta, "compta@test", "secret")
	_ = seedTestClient(t, conn)

	// montant nul refusé
	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(`{"client_id":1,"montant_ht":0,"tva_rate":20}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(auth.WithUserID(req.Context(), user.ID))
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}

	// taux négatif rejeté avant d'atteindre le service
	req = httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(`{"client_id":1,"montant_ht":100,"tva_rate":-5}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(auth.WithUserID(req.Context(), user.ID))
	w = httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
	var verr struct {
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &verr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if verr.Details["tva_rate"] != "must_not_be_negative" {
		t.Fatalf("expected tva_rate violation, got %v", verr.Details)
	}

	// client inconnu
	req = httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(`{"client_id":99,"montant_ht":100,"tva_rate":20}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(auth.WithUserID(req.Context(), user.ID))
	w = httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestInvoicePayAndGet(t *testing.T) {
	conn := setupHandlerDB(t)
	svc := services.NewBillingService(conn, nil)
	h := NewInvoiceHandler(conn, svc, fakeMail{})
	user := seedUser(t, conn, models.RoleCompta, "compta@test", "secret")
	client := seedTestClient(t, conn)

	inv, err := svc.CreateInvoice(services.DocumentInput{ClientID: client.ID, MontantHT: 100, TauxTVA: 20}, nil, nil, user.ID)
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	payReq := httptest.NewRequest(http.MethodPost, "/invoices/"+strconv.Itoa(int(inv.ID))+"/pay", strings.NewReader(`{"montant":120}`))
	payReq.Header.Set("Content-Type", "application/json")
	payReq.SetPathValue("id", strconv.Itoa(int(inv.ID)))
	payReq = payReq.WithContext(auth.WithUserID(payReq.Context(), user.ID))
	payW := httptest.NewRecorder()
	h.Pay(payW, payReq)
	if payW.Code != http.StatusOK {
		t.Fatalf("pay expected 200 got %d body=%s", payW.Code, payW.Body.String())
	}
	var paid models.Invoice
	if err := json.Unmarshal(payW.Body.Bytes(), &paid); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if paid.Statut != models.InvoiceStatusPaye {
		t.Fatalf("expected paye got %s", paid.Statut)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/invoices/"+strconv.Itoa(int(inv.ID)), nil)
	getReq.SetPathValue("id", strconv.Itoa(int(inv.ID)))
	getW := httptest.NewRecorder()
	h.Get(getW, getReq)
	if getW.Code != http.StatusOK {
		t.Fatalf("get expected 200 got %d", getW.Code)
	}
}

func TestInvoicePDF(t *testing.T) {
	conn := setupHandlerDB(t)
	svc := services.NewBillingService(conn, nil)
	h := NewInvoiceHandler(conn, svc, fakeMail{})
	user := seedUser(t, conn, models.RoleCompta, "compta@test", "secret")
	client := seedTestClient(t, conn)

	inv, err := svc.CreateInvoice(services.DocumentInput{ClientID: client.ID, MontantHT: 100, TauxTVA: 20}, nil, nil, user.ID)
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/invoices/"+strconv.Itoa(int(inv.ID))+"/pdf", nil)
	req.SetPathValue("id", strconv.Itoa(int(inv.ID)))
	w := httptest.NewRecorder()
	h.PDF(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("pdf expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/pdf") {
		t.Fatalf("expected pdf content-type got %s", ct)
	}
	if w.Body.Len() == 0 {
		t.Fatal("empty pdf body")
	}
}

func TestInvoiceSend(t *testing.T) {
	conn := setupHandlerDB(t)
	svc := services.NewBillingService(conn, nil)
	user := seedUser(t, conn, models.RoleCompta, "compta@test", "secret")
	client := seedTestClient(t, conn)

	inv, err := svc.CreateInvoice(services.DocumentInput{ClientID: client.ID, MontantHT: 100, TauxTVA: 20}, nil, nil, user.ID)
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	h := NewInvoiceHandler(conn, svc, fakeMail{})
	req := httptest.NewRequest(http.MethodPost, "/invoices/"+strconv.Itoa(int(inv.ID))+"/send", nil)
	req.SetPathValue("id", strconv.Itoa(int(inv.ID)))
	w := httptest.NewRecorder()
	h.Send(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("send expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	// échec SMTP remonté en 502
	h = NewInvoiceHandler(conn, svc, fakeMail{fail: true})
	req = httptest.NewRequest(http.MethodPost, "/invoices/"+strconv.Itoa(int(inv.ID))+"/send", nil)
	req.SetPathValue("id", strconv.Itoa(int(inv.ID)))
	w = httptest.NewRecorder()
	h.Send(w, req)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("send expected 502 got %d", w.Code)
	}
}
