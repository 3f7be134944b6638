package http

import "time"

type healthResponse struct {
	OK      bool   `json:"ok"`
	Network string `json:"network"`
	Signer  string `json:"signer,omitempty"`
}

type uploadURLResponse struct {
	URL string `json:"url"`
}

type generateImageRequest struct {
	Prompt         string `json:"prompt"`
	CollectionName string `json:"collectionName"`
	Description    string `json:"description"`
}

type generateImageResponse struct {
	ImageURL string `json:"imageUrl"`
}

type pinFileResponse struct {
	IPFSHash   string `json:"ipfsHash"`
	GatewayURL string `json:"gatewayUrl"`
}

type publishCollectionResponse struct {
	Locator string `json:"locator"`
	URL     string `json:"url"`
	CID     string `json:"cid"`
}

type mintRequest struct {
	ImageURL    string         `json:"imageUrl"`
	Collection  string         `json:"collection"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Properties  map[string]any `json:"properties"`
	UnitName    string         `json:"unitName"`
	Mimetype    string         `json:"imageMimetype"`
}

type mintResponse struct {
	AssetID     uint64 `json:"assetId"`
	TxID        string `json:"txId"`
	MetadataURL string `json:"metadataUrl"`
	MetadataURI string `json:"metadataUri"`
	Manager     string `json:"manager,omitempty"`
	ExplorerURL string `json:"explorerUrl"`
}

type destroyRequestResponse struct {
	AssetID   uint64    `json:"assetId"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type destroyConfirmRequest struct {
	Code string `json:"code"`
}

type destroyConfirmResponse struct {
	AssetID     uint64 `json:"assetId"`
	TxID        string `json:"txId"`
	ExplorerURL string `json:"explorerUrl"`
}
