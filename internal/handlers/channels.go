package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/magebridge/internal/channels"
	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/storefront"
)

// ChannelRequest creates a storefront channel
type ChannelRequest struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	APIUser        string `json:"api_user"`
	APIKey         string `json:"api_key"`
	OrderPrefix    string `json:"order_prefix"`
	ExportTracking bool   `json:"export_tracking"`
}

// ConfigureRequest selects the website and store a channel imports from
type ConfigureRequest struct {
	WebsiteID int `json:"website_id"`
	StoreID   int `json:"store_id"`
}

// ExportCatalogRequest lists the local products to create on the storefront
type ExportCatalogRequest struct {
	CategoryID uint   `json:"category_id"`
	ProductIDs []uint `json:"product_ids"`
}

func (r *Router) listChannels(w http.ResponseWriter, req *http.Request) {
	var list []models.Channel
	if err := r.db.WithContext(req.Context()).Order("id").Find(&list).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load channels")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (r *Router) createChannel(w http.ResponseWriter, req *http.Request) {
	var body ChannelRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	ch := models.Channel{
		Name:           body.Name,
		URL:            body.URL,
		APIUser:        body.APIUser,
		APIKey:         body.APIKey,
		OrderPrefix:    body.OrderPrefix,
		ExportTracking: body.ExportTracking,
		Active:         true,
	}
	if ch.Name == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if err := ch.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if ch.OrderPrefix == "" {
		ch.OrderPrefix = models.DefaultOrderPrefix
	}
	if err := r.db.WithContext(req.Context()).Create(&ch).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create channel")
		return
	}
	respondJSON(w, http.StatusCreated, ch)
}

func (r *Router) getChannel(w http.ResponseWriter, req *http.Request) {
	ch, ok := r.channel(w, req)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ch)
}

// channel loads the {id} channel, writing the error response itself on failure
func (r *Router) channel(w http.ResponseWriter, req *http.Request) (*models.Channel, bool) {
	id, ok := pathID(req, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid channel id")
		return nil, false
	}
	var ch models.Channel
	err := r.db.WithContext(req.Context()).First(&ch, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "Channel not found")
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load channel")
		return nil, false
	}
	return &ch, true
}

// session opens a storefront session for ch; call the returned func when done
func (r *Router) session(w http.ResponseWriter, req *http.Request, ch *models.Channel) (*channels.Service, func(), bool) {
	if err := ch.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	api, err := r.connect(ch)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return nil, nil, false
	}
	done := func() {
		if c, ok := api.(io.Closer); ok {
			_ = c.Close()
		}
	}
	log := logger.FromContext(req.Context(), r.log)
	return channels.New(r.db.DB, api, log), done, true
}

func (r *Router) testConnection(w http.ResponseWriter, req *http.Request) {
	ch, ok := r.channel(w, req)
	if !ok {
		return
	}
	svc, done, ok := r.session(w, req, ch)
	if !ok {
		return
	}
	defer done()

	if err := svc.TestConnection(req.Context()); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

func (r *Router) listWebsites(w http.ResponseWriter, req *http.Request) {
	ch, ok := r.channel(w, req)
	if !ok {
		return
	}
	svc, done, ok := r.session(w, req, ch)
	if !ok {
		return
	}
	defer done()

	websites, err := svc.Websites(req.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, websites)
}

func (r *Router) listStores(w http.ResponseWriter, req *http.Request) {
	ch, ok := r.channel(w, req)
	if !ok {
		return
	}
	websiteID, err := strconv.Atoi(mux.Vars(req)["website"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid website id")
		return
	}
	svc, done, ok := r.session(w, req, ch)
	if !ok {
		return
	}
	defer done()

	stores, err := svc.Stores(req.Context(), websiteID)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stores)
}

func (r *Router) configureChannel(w http.ResponseWriter, req *http.Request) {
	ch, ok := r.channel(w, req)
	if !ok {
		return
	}
	var body ConfigureRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	svc, done, ok := r.session(w, req, ch)
	if !ok {
		return
	}
	defer done()

	err := svc.Configure(req.Context(), ch, body.WebsiteID, body.StoreID)
	switch {
	case errors.Is(err, channels.ErrUnknownWebsite), errors.Is(err, channels.ErrUnknownStore):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondJSON(w, http.StatusOK, ch)
	}
}

func (r *Router) importReferenceData(w http.ResponseWriter, req *http.Request) {
	ch, ok := r.channel(w, req)
	if !ok {
		return
	}
	what := mux.Vars(req)["what"]
	svc, done, ok := r.session(w, req, ch)
	if !ok {
		return
	}
	defer done()

	ctx := req.Context()
	var (
		result interface{}
		err    error
	)
	switch what {
	case "order-states":
		result, err = svc.ImportOrderStates(ctx, ch)
	case "carriers":
		result, err = svc.ImportCarriers(ctx, ch)
	case "categories":
		result, err = svc.ImportCategories(ctx, ch)
	case "products":
		result, err = svc.ImportProducts(ctx, ch)
	default:
		respondError(w, http.StatusNotFound, "Unknown import "+what)
		return
	}
	if err != nil {
		r.upstreamError(w, req, "Import failed", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"import": what, "result": result})
}

func (r *Router) updateCatalog(w http.ResponseWriter, req *http.Request) {
	ch, ok := r.channel(w, req)
	if !ok {
		return
	}
	svc, done, ok := r.session(w, req, ch)
	if !ok {
		return
	}
	defer done()

	sum, err := svc.UpdateCatalog(req.Context(), ch)
	if err != nil {
		r.upstreamError(w, req, "Catalog update failed", err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

func (r *Router) exportCatalog(w http.ResponseWriter, req *http.Request) {
	ch, ok := r.channel(w, req)
	if !ok {
		return
	}
	var body ExportCatalogRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.CategoryID == 0 || len(body.ProductIDs) == 0 {
		respondError(w, http.StatusBadRequest, "category_id and product_ids are required")
		return
	}
	svc, done, ok := r.session(w, req, ch)
	if !ok {
		return
	}
	defer done()

	sum, err := svc.ExportCatalog(req.Context(), ch, body.CategoryID, body.ProductIDs)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "Category not found")
		return
	}
	if err != nil {
		r.upstreamError(w, req, "Catalog export failed", err)
		return
	}
	respondJSON(w, http.StatusOK, sum)
}

func (r *Router) upstreamError(w http.ResponseWriter, req *http.Request, msg string, err error) {
	logger.FromContext(req.Context(), r.log).Error(msg, zap.Error(err))
	status := http.StatusInternalServerError
	var fault *storefront.Fault
	if errors.As(err, &fault) || errors.Is(err, storefront.ErrConnection) {
		status = http.StatusBadGateway
	}
	respondError(w, status, err.Error())
}
