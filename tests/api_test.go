package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const baseURL = "http://localhost:8080"

// RegisterResponse структура ответа при регистрации
type RegisterResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthResponse структура ответа при аутентификации
type AuthResponse struct {
	Token string `json:"token"`
}

// MedicineResponse — медикамент из каталога
type MedicineResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// OrderItemRequest — позиция в запросе на создание заказа
type OrderItemRequest struct {
	MedicineID string `json:"medicineId"`
	Quantity   int    `json:"quantity"`
}

// CreateOrderRequest — запрос на создание заказа
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	DeliveryAddress string             `json:"deliveryAddress"`
	PhoneNumber     string             `json:"phoneNumber"`
}

// OrderResponse — заказ из ответа сервера
type OrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// requireServer пропускает сценарий, если сервер не запущен локально
func requireServer(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "localhost:8080", time.Second)
	if err != nil {
		t.Skip("server is not running on localhost:8080")
	}
	conn.Close()
}

// uniqueEmail генерирует уникальный адрес, чтобы повторные запуски не конфликтовали
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@test.com", prefix, time.Now().UnixNano())
}

func registerUser(t *testing.T, email, password string) string {
	reqBody := []byte(`{"email": "` + email + `", "password": "` + password + `", "displayName": "Test User"}`)
	resp, err := http.Post(baseURL+"/api/auth/register", "application/json", bytes.NewBuffer(reqBody))
	assert.NoError(t, err, "Register request should not error")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode, "Expected 201 Created for valid registration")

	var regResp RegisterResponse
	err = json.NewDecoder(resp.Body).Decode(&regResp)
	assert.NoError(t, err, "Decoding register response should succeed")
	assert.NotEmpty(t, regResp.ID, "User ID should not be empty")
	return regResp.ID
}

func loginUser(t *testing.T, email, password string) string {
	reqBody := []byte(`{"email": "` + email + `", "password": "` + password + `"}`)
	resp, err := http.Post(baseURL+"/api/auth/login", "application/json", bytes.NewBuffer(reqBody))
	assert.NoError(t, err, "Login request should not error")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "Expected 200 OK for valid login")

	var authResp AuthResponse
	err = json.NewDecoder(resp.Body).Decode(&authResp)
	assert.NoError(t, err, "Decoding auth response should succeed")
	assert.NotEmpty(t, authResp.Token, "Token should not be empty")
	return authResp.Token
}

// сценарий с успешной регистрацией и входом
func TestRegisterAndLogin(t *testing.T) {
	requireServer(t)

	email := uniqueEmail("newuser")
	registerUser(t, email, "testpass123")
	token := loginUser(t, email, "testpass123")
	assert.NotEmpty(t, token, "token should be obtained")
}

// сценарий с повторной регистрацией на тот же адрес
func TestRegisterDuplicateEmail(t *testing.T) {
	requireServer(t)

	email := uniqueEmail("dup")
	registerUser(t, email, "testpass123")

	reqBody := []byte(`{"email": "` + email + `", "password": "testpass123", "displayName": "Test User"}`)
	resp, err := http.Post(baseURL+"/api/auth/register", "application/json", bytes.NewBuffer(reqBody))
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected 400 for duplicate email")
}

// сценарий с безуспешной аутентификацией
func TestLoginInvalid(t *testing.T) {
	requireServer(t)

	reqBody := []byte(`{"email": "nobody@test.com", "password": "wrongpass"}`)
	resp, err := http.Post(baseURL+"/api/auth/login", "application/json", bytes.NewBuffer(reqBody))
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "expected 401 for invalid login")
}

// сценарий просмотра каталога без авторизации
func TestListMedicinesPublic(t *testing.T) {
	requireServer(t)

	resp, err := http.Get(baseURL + "/api/medicines")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "catalog should be public")

	var medicines []MedicineResponse
	err = json.NewDecoder(resp.Body).Decode(&medicines)
	assert.NoError(t, err, "catalog response should be a JSON array")
}

// сценарий просмотра списка категорий
func TestListCategories(t *testing.T) {
	requireServer(t)

	resp, err := http.Get(baseURL + "/api/medicines/categories/list")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var categories []string
	err = json.NewDecoder(resp.Body).Decode(&categories)
	assert.NoError(t, err)
}

// сценарий с запросом заказов без токена
func TestListOrdersUnauthorized(t *testing.T) {
	requireServer(t)

	req, err := http.NewRequest("GET", baseURL+"/api/orders", nil)
	assert.NoError(t, err)
	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "expected 401 unauthorized for missing token")
}

// сценарий создания медикамента обычным пользователем
func TestCreateMedicineForbidden(t *testing.T) {
	requireServer(t)

	email := uniqueEmail("plain")
	registerUser(t, email, "testpass123")
	token := loginUser(t, email, "testpass123")

	reqBody := []byte(`{"name": "Aspirin", "price": 9.99, "quantity": 5, "category": "painkillers"}`)
	req, err := http.NewRequest("POST", baseURL+"/api/medicines", bytes.NewBuffer(reqBody))
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "plain user must not create medicines")
}

// сценарий заказа с пустым списком позиций
func TestCreateOrderEmptyItems(t *testing.T) {
	requireServer(t)

	email := uniqueEmail("buyer")
	registerUser(t, email, "testpass123")
	token := loginUser(t, email, "testpass123")

	requestBody := CreateOrderRequest{
		Items:           []OrderItemRequest{},
		DeliveryAddress: "Main St 1",
		PhoneNumber:     "+380501112233",
	}
	jsonBody, err := json.Marshal(requestBody)
	assert.NoError(t, err)

	req, err := http.NewRequest("POST", baseURL+"/api/orders", bytes.NewBuffer(jsonBody))
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected 400 for empty order")
}

// сценарий заказа несуществующего медикамента
func TestCreateOrderUnknownMedicine(t *testing.T) {
	requireServer(t)

	email := uniqueEmail("buyer")
	registerUser(t, email, "testpass123")
	token := loginUser(t, email, "testpass123")

	requestBody := CreateOrderRequest{
		Items:           []OrderItemRequest{{MedicineID: "00000000-0000-0000-0000-000000000000", Quantity: 1}},
		DeliveryAddress: "Main St 1",
		PhoneNumber:     "+380501112233",
	}
	jsonBody, err := json.Marshal(requestBody)
	assert.NoError(t, err)

	req, err := http.NewRequest("POST", baseURL+"/api/orders", bytes.NewBuffer(jsonBody))
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "expected 404 for unknown medicine")
}

// сценарий полного цикла заказа: если в каталоге есть товар с остатком,
// создаём заказ и сразу его отменяем — остаток должен вернуться.
func TestOrderLifecycle(t *testing.T) {
	requireServer(t)

	resp, err := http.Get(baseURL + "/api/medicines?inStock=true")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var medicines []MedicineResponse
	err = json.NewDecoder(resp.Body).Decode(&medicines)
	assert.NoError(t, err)
	if len(medicines) == 0 {
		t.Skip("catalog is empty, nothing to order")
	}
	target := medicines[0]

	email := uniqueEmail("lifecycle")
	registerUser(t, email, "testpass123")
	token := loginUser(t, email, "testpass123")

	requestBody := CreateOrderRequest{
		Items:           []OrderItemRequest{{MedicineID: target.ID, Quantity: 1}},
		DeliveryAddress: "Main St 1",
		PhoneNumber:     "+380501112233",
	}
	jsonBody, err := json.Marshal(requestBody)
	assert.NoError(t, err)

	req, err := http.NewRequest("POST", baseURL+"/api/orders", bytes.NewBuffer(jsonBody))
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	createResp, err := client.Do(req)
	assert.NoError(t, err)
	defer createResp.Body.Close()
	assert.Equal(t, http.StatusCreated, createResp.StatusCode, "expected 201 for valid order")

	var order OrderResponse
	err = json.NewDecoder(createResp.Body).Decode(&order)
	assert.NoError(t, err)
	assert.Equal(t, "pending", order.Status)

	// остаток уменьшился на единицу
	medResp, err := http.Get(baseURL + "/api/medicines/" + target.ID)
	assert.NoError(t, err)
	defer medResp.Body.Close()
	var after MedicineResponse
	err = json.NewDecoder(medResp.Body).Decode(&after)
	assert.NoError(t, err)
	assert.Equal(t, target.Quantity-1, after.Quantity, "stock should be reserved")

	// отменяем заказ
	cancelReq, err := http.NewRequest("DELETE", baseURL+"/api/orders/"+order.ID, nil)
	assert.NoError(t, err)
	cancelReq.Header.Set("Authorization", "Bearer "+token)
	cancelResp, err := client.Do(cancelReq)
	assert.NoError(t, err)
	defer cancelResp.Body.Close()
	assert.Equal(t, http.StatusOK, cancelResp.StatusCode, "expected 200 for cancellation")

	// остаток вернулся
	restoredResp, err := http.Get(baseURL + "/api/medicines/" + target.ID)
	assert.NoError(t, err)
	defer restoredResp.Body.Close()
	var restored MedicineResponse
	err = json.NewDecoder(restoredResp.Body).Decode(&restored)
	assert.NoError(t, err)
	assert.Equal(t, target.Quantity, restored.Quantity, "stock should be restored after cancellation")

	// повторная отмена отклоняется
	cancelAgain, err := http.NewRequest("DELETE", baseURL+"/api/orders/"+order.ID, nil)
	assert.NoError(t, err)
	cancelAgain.Header.Set("Authorization", "Bearer "+token)
	againResp, err := client.Do(cancelAgain)
	assert.NoError(t, err)
	defer againResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, againResp.StatusCode, "double cancellation should fail")
}

// сценарий гонки за последние единицы товара: из двух одновременных заказов
// на весь остаток ровно один проходит, второй получает 400, остаток — ноль.
func TestConcurrentOrdersLastUnits(t *testing.T) {
	requireServer(t)

	resp, err := http.Get(baseURL + "/api/medicines?inStock=true")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var medicines []MedicineResponse
	err = json.NewDecoder(resp.Body).Decode(&medicines)
	assert.NoError(t, err)
	if len(medicines) == 0 {
		t.Skip("catalog is empty, nothing to order")
	}
	target := medicines[0]

	emailA := uniqueEmail("racer-a")
	emailB := uniqueEmail("racer-b")
	registerUser(t, emailA, "testpass123")
	registerUser(t, emailB, "testpass123")
	tokenA := loginUser(t, emailA, "testpass123")
	tokenB := loginUser(t, emailB, "testpass123")

	// оба заказа претендуют на весь остаток целиком
	requestBody := CreateOrderRequest{
		Items:           []OrderItemRequest{{MedicineID: target.ID, Quantity: target.Quantity}},
		DeliveryAddress: "Main St 1",
		PhoneNumber:     "+380501112233",
	}
	jsonBody, err := json.Marshal(requestBody)
	assert.NoError(t, err)

	placeOrder := func(token string) (int, OrderResponse) {
		req, err := http.NewRequest("POST", baseURL+"/api/orders", bytes.NewBuffer(jsonBody))
		assert.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		client := &http.Client{}
		resp, err := client.Do(req)
		assert.NoError(t, err)
		defer resp.Body.Close()

		var order OrderResponse
		if resp.StatusCode == http.StatusCreated {
			assert.NoError(t, json.NewDecoder(resp.Body).Decode(&order))
		}
		return resp.StatusCode, order
	}

	type result struct {
		status int
		order  OrderResponse
	}
	results := make(chan result, 2)
	var wg sync.WaitGroup
	for _, token := range []string{tokenA, tokenB} {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			status, order := placeOrder(token)
			results <- result{status: status, order: order}
		}(token)
	}
	wg.Wait()
	close(results)

	var created, rejected int
	var winner OrderResponse
	for r := range results {
		switch r.status {
		case http.StatusCreated:
			created++
			winner = r.order
		case http.StatusBadRequest:
			rejected++
		}
	}
	assert.Equal(t, 1, created, "exactly one concurrent order should succeed")
	assert.Equal(t, 1, rejected, "the other should fail with insufficient stock")

	// остаток полностью зарезервирован
	medResp, err := http.Get(baseURL + "/api/medicines/" + target.ID)
	assert.NoError(t, err)
	defer medResp.Body.Close()
	var after MedicineResponse
	err = json.NewDecoder(medResp.Body).Decode(&after)
	assert.NoError(t, err)
	assert.Equal(t, 0, after.Quantity, "all units should be reserved by the winner")

	// возвращаем товар на склад, чтобы не мешать другим сценариям
	cancelReq, err := http.NewRequest("DELETE", baseURL+"/api/orders/"+winner.ID, nil)
	assert.NoError(t, err)
	winnerToken := tokenA
	if created == 1 && winner.ID != "" {
		// токен победителя неизвестен заранее, пробуем оба
		client := &http.Client{}
		cancelReq.Header.Set("Authorization", "Bearer "+tokenA)
		cancelResp, err := client.Do(cancelReq)
		assert.NoError(t, err)
		if cancelResp.StatusCode != http.StatusOK {
			cancelResp.Body.Close()
			winnerToken = tokenB
			retryReq, err := http.NewRequest("DELETE", baseURL+"/api/orders/"+winner.ID, nil)
			assert.NoError(t, err)
			retryReq.Header.Set("Authorization", "Bearer "+winnerToken)
			retryResp, err := client.Do(retryReq)
			assert.NoError(t, err)
			defer retryResp.Body.Close()
			assert.Equal(t, http.StatusOK, retryResp.StatusCode)
		} else {
			cancelResp.Body.Close()
		}
	}
}

// сценарий просмотра профиля
func TestProfile(t *testing.T) {
	requireServer(t)

	email := uniqueEmail("profile")
	registerUser(t, email, "testpass123")
	token := loginUser(t, email, "testpass123")

	req, err := http.NewRequest("GET", baseURL+"/api/users/profile", nil)
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "expected 200 OK for profile")
}
