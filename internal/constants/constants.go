package constants

const (
	AppName = "algomint"

	// CollectionNetwork is the fixed network literal written into descriptors.
	CollectionNetwork = "algorand"

	CollectionFileName     = "collection.json"
	MetadataFileName       = "metadata.json"
	GeneratedImageFileName = "nft-image.png"

	JSONMimetype         = "application/json"
	DefaultImageMimetype = "image/png"
	DefaultUnitName      = "MP"
	DefaultAssetName     = "Untitled"

	IPFSScheme      = "ipfs://"
	IPFSPathSegment = "/ipfs/"
	IntegrityPrefix = "sha256-"

	// NoCollectionKey groups assets whose metadata names no collection.
	NoCollectionKey = "__no_collection__"

	// ZeroAddress is the all-zero Algorand address; a manager set to it cannot act.
	ZeroAddress = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAY5HFKQ"

	NFTTotal    = 1
	NFTDecimals = 0

	// Protocol limits for asset params.
	MaxAssetNameBytes = 32
	MaxUnitNameBytes  = 8
	MaxAssetURLBytes  = 96

	ConfirmationWaitRounds = 4

	MaxDocumentBytes = 4 << 20
	MaxUploadBytes   = 32 << 20
)
