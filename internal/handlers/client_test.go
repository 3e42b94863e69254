package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/transfret/backoffice/internal/models"
)

func TestClientCRUD(t *testing.T) {
	conn := setupHandlerDB(t)
	h := NewClientHandler(conn)

	// Create
	body := `{"nom":"Transports Morel","ville":"Lyon","siret":"12345678900011","delai_paiement":45}`
	req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var created models.Client
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.DelaiPaiement != 45 {
		t.Fatalf("expected delai 45 got %d", created.DelaiPaiement)
	}
	id := strconv.Itoa(int(created.ID))

	// Get
	getReq := httptest.NewRequest(http.MethodGet, "/clients/"+id, nil)
	getReq.SetPathValue("id", id)
	getW := httptest.NewRecorder()
	h.Get(getW, getReq)
	if getW.Code != http.StatusOK {
		t.Fatalf("get expected 200 got %d", getW.Code)
	}

	// Update
	upReq := httptest.NewRequest(http.MethodPut, "/clients/"+id, strings.NewReader(`{"nom":"Morel SAS","ville":"Villeurbanne"}`))
	upReq.Header.Set("Content-Type", "application/json")
	upReq.SetPathValue("id", id)
	upW := httptest.NewRecorder()
	h.Update(upW, upReq)
	if upW.Code != http.StatusOK {
		t.Fatalf("update expected 200 got %d body=%s", upW.Code, upW.Body.String())
	}

	// List with search
	listReq := httptest.NewRequest(http.MethodGet, "/clients?q=morel", nil)
	listW := httptest.NewRecorder()
	h.List(listW, listReq)
	var list struct {
		Items []models.Client `json:"items"`
		Total int64           `json:"total"`
	}
	if err := json.Unmarshal(listW.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 1 || list.Items[0].Nom != "Morel SAS" {
		t.Fatalf("unexpected list: %#v", list)
	}

	// Delete
	delReq := httptest.NewRequest(http.MethodDelete, "/clients/"+id, nil)
	delReq.SetPathValue("id", id)
	delW := httptest.NewRecorder()
	h.Delete(delW, delReq)
	if delW.Code != http.StatusOK {
		t.Fatalf("delete expected 200 got %d", delW.Code)
	}
}

func TestClientCreateRequiresNom(t *testing.T) {
	conn := setupHandlerDB(t)
	h := NewClientHandler(conn)

	req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(`{"ville":"Lyon"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestClientDeleteBlockedWhenInvoiced(t *testing.T) {
	conn := setupHandlerDB(t)
	h := NewClientHandler(conn)
	client := seedTestClient(t, conn)

	inv := models.Invoice{Numero: "F2406-01", ClientID: client.ID, MontantHT: 100, TVA: 20, MontantTTC: 120, Statut: models.InvoiceStatusEnAttente}
	if err := conn.Create(&inv).Error; err != nil {
		t.Fatalf("invoice: %v", err)
	}

	id := strconv.Itoa(int(client.ID))
	req := httptest.NewRequest(http.MethodDelete, "/clients/"+id, nil)
	req.SetPathValue("id", id)
	w := httptest.NewRecorder()
	h.Delete(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", w.Code, w.Body.String())
	}
}
