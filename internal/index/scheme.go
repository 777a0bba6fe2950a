package index

var (
	bOutputs = []byte("outputs") // relative output path -> sha256 hex
	bMeta    = []byte("meta")    // bookkeeping about the last build

	kBuiltAt = []byte("built_at")
	kCount   = []byte("count")
)
