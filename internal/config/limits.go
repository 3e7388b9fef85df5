package config

const (
	// MaxDocumentTitleLength is the maximum length for document titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxDocumentTitleLength = 255

	// MaxBranchNameLength is the maximum length for branch names.
	MaxBranchNameLength = 255

	// MaxBlocksPerDocument caps the number of blocks a single invitation may hold.
	MaxBlocksPerDocument = 64

	// MaxPatchOperations caps the number of operations accepted in one patch set,
	// whether authored manually or produced by the generative model.
	MaxPatchOperations = 200

	// MaxPromptLength is the maximum length of an AI edit instruction.
	MaxPromptLength = 2000

	// MaxTextFieldLength bounds free-text content fields (story bodies, messages).
	MaxTextFieldLength = 5000

	// MaxShortFieldLength bounds single-line content fields (titles, labels, names).
	MaxShortFieldLength = 200

	// MaxListItems bounds list-valued content (gallery images, schedule events, FAQ items).
	MaxListItems = 50
)

// DefaultContextMaxBytes bounds the document summary sent with an AI edit.
const DefaultContextMaxBytes = 16 * 1024

// MaxHistoryPage caps the number of edit log entries returned by one history request.
const MaxHistoryPage = 500
