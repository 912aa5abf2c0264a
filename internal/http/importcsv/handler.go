package importcsv

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/pocketbook/internal/http/authn"
	"github.com/MrJamesThe3rd/pocketbook/internal/http/respond"
	httptx "github.com/MrJamesThe3rd/pocketbook/internal/http/transaction"
	"github.com/MrJamesThe3rd/pocketbook/internal/importer"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

const maxUploadSize = 10 << 20

type Handler struct {
	importSvc *importer.Service
	txSvc     *transaction.Service
}

func NewHandler(importSvc *importer.Service, txSvc *transaction.Service) *Handler {
	return &Handler{
		importSvc: importSvc,
		txSvc:     txSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
	r.Post("/confirm", h.confirmImport)
}

type importSuccessResponse struct {
	Imported     int               `json:"imported"`
	Transactions []httptx.Response `json:"transactions"`
}

type conflictDTO struct {
	Incoming httptx.Params   `json:"incoming"`
	Existing httptx.Response `json:"existing"`
}

type importConflictResponse struct {
	New       []httptx.Params `json:"new"`
	Conflicts []conflictDTO   `json:"conflicts"`
}

type confirmRequest struct {
	Params []httptx.Params `json:"params"`
}

// importCSV parses an uploaded file and stores its rows. When some rows look
// like transactions the user already has, nothing is stored and the split
// between new rows and conflicts is returned with 409 for review.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	format, err := importer.ParseFormat(r.FormValue("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	userID := authn.UserID(r.Context())

	params, err := h.importSvc.Import(r.Context(), userID, format, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.txSvc.ImportBatch(r.Context(), userID, params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			New:       make([]httptx.Params, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
		}
		for _, p := range result.New {
			resp.New = append(resp.New, httptx.ToParams(p))
		}

		for _, c := range result.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: httptx.ToParams(c.Incoming),
				Existing: httptx.ToResponse(&c.Existing),
			})
		}

		respond.JSON(w, http.StatusConflict, resp)

		return
	}

	respond.JSON(w, http.StatusCreated, toSuccessResponse(result.Imported))
}

// confirmImport stores the rows the user kept after reviewing conflicts.
func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	params := make([]transaction.CreateParams, 0, len(req.Params))
	for _, p := range req.Params {
		cp, err := p.CreateParams()
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		params = append(params, cp)
	}

	txs, err := h.txSvc.CreateBatch(r.Context(), authn.UserID(r.Context()), params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toSuccessResponse(txs))
}

func toSuccessResponse(txs []*transaction.Transaction) importSuccessResponse {
	responses := make([]httptx.Response, 0, len(txs))
	for _, tx := range txs {
		responses = append(responses, httptx.ToResponse(tx))
	}

	return importSuccessResponse{
		Imported:     len(txs),
		Transactions: responses,
	}
}
