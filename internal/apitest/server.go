// Package apitest provides an in-memory stand-in for the remote TrueNumber
// service, implementing the wire contract the client consumes. It exists for
// tests only; the real service stays opaque to this repository.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/truenumber/truenumber-cli/internal/dependencies/clock"
	"github.com/truenumber/truenumber-cli/internal/dependencies/random"
	"github.com/truenumber/truenumber-cli/internal/model"
)

// Play outcome rules mirrored from the game service: numbers are drawn in
// [0,100], a number above the win threshold pays out, anything else costs
// points with the balance floored at zero.
const (
	winThreshold = 70
	winPayout    = 50
	lossPenalty  = 35
)

type account struct {
	user         model.User
	passwordHash []byte
}

// Server is the fake TrueNumber API. All state lives in memory behind one
// mutex; determinism comes from the injected clock and random.
type Server struct {
	clock  clock.Clock
	random random.Random

	mu            sync.Mutex
	accounts      map[model.UserID]*account
	order         []model.UserID
	tokens        map[string]model.UserID
	histories     map[model.UserID][]model.GameRecord
	globalHistory []model.GameRecord
	nextAccount   int
	nextToken     int
	routeCounts   map[string]int

	// OnPlay, if set, runs inside the play handler before the outcome is
	// computed. Tests use it to hold a play in flight.
	OnPlay func()

	httpServer *httptest.Server
}

// NewServer starts a fake server with the given clock and random source.
func NewServer(clk clock.Clock, rnd random.Random) *Server {
	s := &Server{
		clock:       clk,
		random:      rnd,
		accounts:    make(map[model.UserID]*account),
		tokens:      make(map[string]model.UserID),
		histories:   make(map[model.UserID][]model.GameRecord),
		routeCounts: make(map[string]int),
	}

	r := mux.NewRouter()
	r.Use(s.countRequests)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/users/me", s.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	r.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}", s.handleGetUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", s.handleUpdateUser).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}", s.handleDeleteUser).Methods(http.MethodDelete)
	r.HandleFunc("/game/user-game-history", s.handleSelfHistory).Methods(http.MethodGet)
	r.HandleFunc("/game/all-history", s.handleAllHistory).Methods(http.MethodGet)
	r.HandleFunc("/game/play-game", s.handlePlay).Methods(http.MethodPost)

	s.httpServer = httptest.NewServer(r)
	return s
}

// URL returns the fake server's base URL.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Close shuts the fake server down.
func (s *Server) Close() {
	s.httpServer.Close()
}

// Seed adds an account with the given password and returns its ID. A zero ID
// is assigned automatically.
func (s *Server) Seed(user model.User, password string) model.UserID {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("apitest: hashing seed password: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		s.nextAccount++
		user.ID = model.UserID(fmt.Sprintf("u%06d", s.nextAccount))
	}
	if user.Role == "" {
		user.Role = model.RoleClient
	}
	s.accounts[user.ID] = &account{user: user, passwordHash: hash}
	s.order = append(s.order, user.ID)
	return user.ID
}

// TokenFor issues a valid token for an existing account, bypassing login.
func (s *Server) TokenFor(id model.UserID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueToken(id)
}

// InvalidateToken revokes a token, so the next authenticated call 401s.
func (s *Server) InvalidateToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Requests returns the total number of requests the server has received.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.routeCounts {
		total += n
	}
	return total
}

// RouteRequests returns how many times a method+path was hit.
func (s *Server) RouteRequests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.routeCounts[method+" "+path]
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.routeCounts[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// issueToken must be called with the lock held.
func (s *Server) issueToken(id model.UserID) string {
	s.nextToken++
	token := fmt.Sprintf("tok_%06d", s.nextToken)
	s.tokens[token] = id
	return token
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// authenticate resolves the bearer token to an account, with the lock held
// by the caller.
func (s *Server) authenticate(r *http.Request) *account {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil
	}
	id, ok := s.tokens[strings.TrimPrefix(header, "Bearer ")]
	if !ok {
		return nil
	}
	return s.accounts[id]
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "Requête invalide")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		acct := s.accounts[id]
		if acct.user.Email != creds.Email {
			continue
		}
		if bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(creds.Password)) != nil {
			break
		}
		token := s.issueToken(id)
		writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": acct.user})
		return
	}
	writeMessage(w, http.StatusUnauthorized, "Identifiants incorrects")
}

type registerRequest struct {
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Phone    string     `json:"phone"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

// validateRegistration must be called with the lock held.
func (s *Server) validateRegistration(req registerRequest) (int, string) {
	if req.Username == "" || req.Email == "" || req.Phone == "" {
		return http.StatusBadRequest, "Tous les champs sont obligatoires"
	}
	if len(req.Password) < model.MinPasswordLength {
		return http.StatusBadRequest, "Le mot de passe doit contenir au moins 6 caractères"
	}
	for _, id := range s.order {
		if s.accounts[id].user.Email == req.Email {
			return http.StatusBadRequest, "Cet email est déjà utilisé"
		}
	}
	return 0, ""
}

// createAccount must be called with the lock held.
func (s *Server) createAccount(req registerRequest) *account {
	hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	role := req.Role
	if role == "" {
		role = model.RoleClient
	}
	s.nextAccount++
	user := model.User{
		ID:       model.UserID(fmt.Sprintf("u%06d", s.nextAccount)),
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     role,
		Balance:  0,
	}
	acct := &account{user: user, passwordHash: hash}
	s.accounts[user.ID] = acct
	s.order = append(s.order, user.ID)
	return acct
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Requête invalide")
		return
	}
	// Self-service registration never grants a role.
	req.Role = model.RoleClient

	s.mu.Lock()
	defer s.mu.Unlock()
	if status, msg := s.validateRegistration(req); status != 0 {
		writeMessage(w, status, msg)
		return
	}
	acct := s.createAccount(req)
	token := s.issueToken(acct.user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": acct.user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.authenticate(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Non autorisé")
		return
	}
	writeJSON(w, http.StatusOK, acct.user)
}

// requireAdmin authenticates and checks the admin role, writing the error
// response itself on failure. Must be called with the lock held.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) *account {
	acct := s.authenticate(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Non autorisé")
		return nil
	}
	if acct.user.Role != model.RoleAdmin {
		writeMessage(w, http.StatusForbidden, "Accès refusé")
		return nil
	}
	return acct
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requireAdmin(w, r) == nil {
		return
	}
	users := make([]model.User, 0, len(s.order))
	for _, id := range s.order {
		users = append(users, s.accounts[id].user)
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requireAdmin(w, r) == nil {
		return
	}
	id := model.UserID(mux.Vars(r)["id"])
	acct, ok := s.accounts[id]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Utilisateur non trouvé")
		return
	}
	details := model.UserDetails{User: acct.user, GameHistory: s.histories[id]}
	if details.GameHistory == nil {
		details.GameHistory = []model.GameRecord{}
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Requête invalide")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requireAdmin(w, r) == nil {
		return
	}
	if status, msg := s.validateRegistration(req); status != 0 {
		writeMessage(w, status, msg)
		return
	}
	acct := s.createAccount(req)
	writeJSON(w, http.StatusCreated, acct.user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Requête invalide")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requireAdmin(w, r) == nil {
		return
	}
	id := model.UserID(mux.Vars(r)["id"])
	acct, ok := s.accounts[id]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Utilisateur non trouvé")
		return
	}

	if req.Username != "" {
		acct.user.Username = req.Username
	}
	if req.Email != "" {
		acct.user.Email = req.Email
	}
	if req.Phone != "" {
		acct.user.Phone = req.Phone
	}
	if req.Role != "" {
		acct.user.Role = req.Role
	}
	if req.Password != "" {
		if len(req.Password) < model.MinPasswordLength {
			writeMessage(w, http.StatusBadRequest, "Le mot de passe doit contenir au moins 6 caractères")
			return
		}
		hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
		acct.passwordHash = hash
	}

	writeJSON(w, http.StatusOK, acct.user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requireAdmin(w, r) == nil {
		return
	}
	id := model.UserID(mux.Vars(r)["id"])
	if _, ok := s.accounts[id]; !ok {
		writeMessage(w, http.StatusNotFound, "Utilisateur non trouvé")
		return
	}
	delete(s.accounts, id)
	delete(s.histories, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelfHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.authenticate(r)
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Non autorisé")
		return
	}
	records := s.histories[acct.user.ID]
	if records == nil {
		records = []model.GameRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAllHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requireAdmin(w, r) == nil {
		return
	}
	records := s.globalHistory
	if records == nil {
		records = []model.GameRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acct := s.authenticate(r)
	s.mu.Unlock()
	if acct == nil {
		writeMessage(w, http.StatusUnauthorized, "Non autorisé")
		return
	}

	if s.OnPlay != nil {
		s.OnPlay()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	number := s.random.Intn(101)
	result := model.ResultLose
	delta := -lossPenalty
	if number > winThreshold {
		result = model.ResultWin
		delta = winPayout
	}

	oldBalance := acct.user.Balance
	newBalance := oldBalance + delta
	if newBalance < 0 {
		newBalance = 0
	}
	acct.user.Balance = newBalance

	record := model.GameRecord{
		Date:            s.clock.Now(),
		GeneratedNumber: number,
		Result:          result,
		BalanceChange:   newBalance - oldBalance,
		NewBalance:      newBalance,
	}
	// Most recent first, matching the contract's response order.
	s.histories[acct.user.ID] = append([]model.GameRecord{record}, s.histories[acct.user.ID]...)

	userRef := acct.user
	global := record
	global.User = &userRef
	s.globalHistory = append([]model.GameRecord{global}, s.globalHistory...)

	writeJSON(w, http.StatusOK, map[string]any{
		"result":          result,
		"generatedNumber": number,
		"newBalance":      newBalance,
	})
}
