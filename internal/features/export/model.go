package export

// Format names a supported artifact encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
	FormatDocument Format = "document"
)

func ValidFormat(f Format) bool {
	switch f {
	case FormatCSV, FormatXLSX, FormatDocument:
		return true
	}
	return false
}

// Artifact is one rendered export. Data for a given execution and format is
// stable: exporting twice yields byte-identical output.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}
