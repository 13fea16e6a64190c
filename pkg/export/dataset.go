package export

// Table is one rendered report table bound for an export artefact.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Note    string
}

// Block is a heading with the tables that belong under it (one submission's
// LAEMPL table followed by its MPS table, for instance).
type Block struct {
	Heading string
	Tables  []Table
}

// Sheet is one workbook sheet: a name plus its content blocks.
type Sheet struct {
	Name   string
	Blocks []Block
}
