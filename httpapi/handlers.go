package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"raffle/domain/entities"
	"raffle/domain/services"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 16

type buyTicketsRequest struct {
	Account   string `json:"account"`
	Count     int64  `json:"count"`
	UnitPrice int64  `json:"unit_price"`
}

type purchaseResponse struct {
	Round  *entities.Round  `json:"round"`
	Ticket *entities.Ticket `json:"ticket"`
	Cost   int64            `json:"cost"`
}

type claimRequest struct {
	Account string `json:"account"`
}

type claimResponse struct {
	RoundID int64            `json:"round_id"`
	Account entities.Account `json:"account"`
	Amount  int64            `json:"amount"`
}

type listResponse struct {
	Rounds []*entities.Round `json:"rounds"`
	Next   *int64            `json:"next_before,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listRounds(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: limit %q", ErrBadRequest, raw))
			return
		}
		limit = n
	}

	var before *int64
	if raw := query.Get("before"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: before %q", ErrBadRequest, raw))
			return
		}
		before = &id
	}

	rounds, err := h.engine.Queries.ListRounds(r.Context(), limit, before)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// A short page means there is nothing older to fetch
	resp := listResponse{Rounds: rounds}
	if len(rounds) > 0 && len(rounds) == services.ClampLimit(limit) {
		last := rounds[len(rounds)-1].ID
		if last > 1 {
			resp.Next = &last
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) currentRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.engine.Queries.CurrentRound(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *handler) getRound(w http.ResponseWriter, r *http.Request) {
	roundID, err := roundIDVar(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	round, err := h.engine.Queries.GetRound(r.Context(), roundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *handler) getTickets(w http.ResponseWriter, r *http.Request) {
	roundID, account, err := roundAndAccountVars(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ticket, err := h.engine.Tickets.GetTickets(r.Context(), roundID, account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *handler) buyTickets(w http.ResponseWriter, r *http.Request) {
	roundID, err := roundIDVar(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req buyTicketsRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, r, err)
		return
	}
	account, err := entities.ParseAccount(req.Account)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.engine.Tickets.BuyTickets(r.Context(), roundID, account, req.Count, req.UnitPrice)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, purchaseResponse{
		Round:  result.Round,
		Ticket: result.Ticket,
		Cost:   result.Cost,
	})
}

func (h *handler) closeRound(w http.ResponseWriter, r *http.Request) {
	roundID, err := roundIDVar(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	round, err := h.engine.Rounds.BeginDrawing(r.Context(), roundID, h.clock())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *handler) claimStatus(w http.ResponseWriter, r *http.Request) {
	roundID, account, err := roundAndAccountVars(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := h.engine.Claims.ClaimStatus(r.Context(), roundID, account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *handler) claimPrize(w http.ResponseWriter, r *http.Request) {
	roundID, err := roundIDVar(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req claimRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, r, err)
		return
	}
	account, err := entities.ParseAccount(req.Account)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.engine.Claims.ClaimPrize(r.Context(), roundID, account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{
		RoundID: result.Round.ID,
		Account: account,
		Amount:  result.Amount,
	})
}

func (h *handler) winnings(w http.ResponseWriter, r *http.Request) {
	account, err := entities.ParseAccount(mux.Vars(r)["account"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	winnings, err := h.engine.Queries.GetUserWinnings(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":  account,
		"winnings": winnings,
	})
}

func roundIDVar(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: round id %q", ErrBadRequest, raw)
	}
	return id, nil
}

func roundAndAccountVars(r *http.Request) (int64, entities.Account, error) {
	roundID, err := roundIDVar(r)
	if err != nil {
		return 0, entities.Account{}, err
	}
	account, err := entities.ParseAccount(mux.Vars(r)["account"])
	if err != nil {
		return 0, entities.Account{}, err
	}
	return roundID, account, nil
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
