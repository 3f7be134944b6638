package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/algomintai/algomint/internal/apperr"
	"github.com/algomintai/algomint/internal/assets"
	"github.com/algomintai/algomint/internal/collections"
	"github.com/algomintai/algomint/internal/mint"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		OK:      true,
		Network: s.network.Name,
		Signer:  s.deps.Sessions.Default(),
	})
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Uploads.SignUploadURL(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadURLResponse{URL: u})
}

// handleGenerateImage pins an uploaded file when the body is multipart and
// otherwise generates one from a JSON prompt.
func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	if isMultipart(r) {
		s.pinUploadedImage(w, r)
		return
	}

	var req generateImageRequest
	if err := readJSONBody(r, &req); err != nil {
		writeBadRequest(w, HTTPErrorInvalidJSONText)
		return
	}

	// Description is accepted for form compatibility but only the prompt
	// reaches the model.
	loc, err := s.deps.Images.Generate(r.Context(), strings.TrimSpace(req.Prompt), req.CollectionName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateImageResponse{ImageURL: loc.HTTPURL})
}

func (s *Server) pinUploadedImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, multipartMemoryMax*4)
	if err := r.ParseMultipartForm(multipartMemoryMax); err != nil {
		writeBadRequest(w, HTTPErrorInvalidFormText)
		return
	}

	f, err := formFile(r, FormFieldFile)
	if err != nil {
		writeBadRequest(w, HTTPErrorInvalidFormText)
		return
	}
	if f == nil {
		writeBadRequest(w, "file is required")
		return
	}

	loc, err := s.deps.Images.Pin(r.Context(), f.Data, f.Name, f.Mimetype)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pinFileResponse{IPFSHash: loc.CID, GatewayURL: loc.HTTPURL})
}

func (s *Server) handlePublishCollection(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, multipartMemoryMax*8)
	if err := r.ParseMultipartForm(multipartMemoryMax); err != nil {
		writeBadRequest(w, HTTPErrorInvalidFormText)
		return
	}

	banner, err := formFile(r, FormFieldBanner)
	if err != nil {
		writeBadRequest(w, HTTPErrorInvalidFormText)
		return
	}
	avatar, err := formFile(r, FormFieldAvatar)
	if err != nil {
		writeBadRequest(w, HTTPErrorInvalidFormText)
		return
	}

	var royalty float64
	if raw := strings.TrimSpace(r.FormValue(FormFieldRoyalty)); raw != "" {
		royalty, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeBadRequest(w, "royaltyPercentage must be a number")
			return
		}
	}

	// The creator is always the signer the service holds for the caller; a
	// creator field naming anyone else is refused.
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if c := strings.TrimSpace(r.FormValue(FormFieldCreator)); c != "" && c != sess.Address {
		writeError(w, r, fmt.Errorf("%w: creator %s is not the active signer", apperr.ErrInvalidInput, c))
		return
	}

	loc, err := s.deps.Collections.Publish(r.Context(), collections.PublishRequest{
		Name:              r.FormValue(FormFieldName),
		Creator:           sess.Address,
		Banner:            banner,
		Avatar:            avatar,
		Explicit:          parseBool(r.FormValue(FormFieldExplicit)),
		RoyaltyPercentage: royalty,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, publishCollectionResponse{Locator: loc.URI, URL: loc.HTTPURL, CID: loc.CID})
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := readJSONBody(r, &req); err != nil {
		writeBadRequest(w, HTTPErrorInvalidJSONText)
		return
	}

	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.deps.Minter.Mint(r.Context(), sess, mint.Request{
		ImageURL:          req.ImageURL,
		CollectionLocator: req.Collection,
		Name:              req.Name,
		Description:       req.Description,
		Properties:        req.Properties,
		UnitName:          req.UnitName,
		ImageMimetype:     req.Mimetype,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.forgetView(sess.Address)

	writeJSON(w, http.StatusCreated, mintResponse{
		AssetID:     res.AssetID,
		TxID:        res.TxID,
		MetadataURL: res.Locator.HTTPURL,
		MetadataURI: res.Locator.URI,
		Manager:     res.Manager,
		ExplorerURL: s.network.AssetURL(res.AssetID),
	})
}

// handleListAssets rebuilds the listing on every call. Addresses the service
// can sign for keep a view so pending destroys survive the refresh.
func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	address := s.activeAddress(r)
	if address == "" {
		writeError(w, r, apperr.ErrNoSession)
		return
	}

	inv, err := s.deps.Inventory.ListOwned(r.Context(), address)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.deps.Sessions.Resolve(address); err != nil {
		writeJSON(w, http.StatusOK, inv)
		return
	}
	writeJSON(w, http.StatusOK, s.storeView(address, inv).Snapshot())
}

func (s *Server) handleRequestDestroy(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDVar(r)
	if !ok {
		writeBadRequest(w, HTTPErrorInvalidAssetText)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := s.view(r.Context(), sess.Address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code, expiresAt, err := v.RequestDestroy(id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.Info("destroy requested", "asset_id", id, "address", sess.Address, "expires_at", expiresAt)
	writeJSON(w, http.StatusOK, destroyRequestResponse{AssetID: id, Code: code, ExpiresAt: expiresAt})
}

func (s *Server) handleConfirmDestroy(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDVar(r)
	if !ok {
		writeBadRequest(w, HTTPErrorInvalidAssetText)
		return
	}
	var req destroyConfirmRequest
	if err := readJSONBody(r, &req); err != nil {
		writeBadRequest(w, HTTPErrorInvalidJSONText)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, err := s.view(r.Context(), sess.Address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txID, err := v.ConfirmDestroy(r.Context(), sess, id, req.Code)
	if err != nil {
		if !errors.Is(err, apperr.ErrConfirmation) {
			log.Warn("destroy failed", "asset_id", id, "address", sess.Address, "error", err)
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, destroyConfirmResponse{
		AssetID:     id,
		TxID:        txID,
		ExplorerURL: s.network.TxURL(txID),
	})
}

func (s *Server) handleCancelDestroy(w http.ResponseWriter, r *http.Request) {
	id, ok := assetIDVar(r)
	if !ok {
		writeBadRequest(w, HTTPErrorInvalidAssetText)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.viewsMu.Lock()
	v, found := s.views[sess.Address]
	s.viewsMu.Unlock()
	if !found {
		writeError(w, r, apperr.ErrNotFound)
		return
	}
	if err := v.Cancel(id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{JSONKeyOK: true})
}

// forgetView drops a cached view so the next destroy request re-lists.
// Views with a confirmation in flight are kept.
func (s *Server) forgetView(address string) {
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()

	v, ok := s.views[address]
	if !ok {
		return
	}
	for _, g := range v.Snapshot().Groups {
		for _, a := range g.Assets {
			if a.State != assets.StateListed {
				return
			}
		}
	}
	delete(s.views, address)
}
