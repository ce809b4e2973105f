package bigquery

// Field describes one column of the warehouse table's schema, mirroring
// the subset of BigQuery's tables.patch schema JSON shape the migrate
// command needs to send. The original daemon loaded this from a packaged
// schema.json resource (importlib_resources.read_text); that resource
// was not present in the retained source, so this is expressed directly
// as a Go literal instead, grounded on the DownloadEvent shape the
// parser produces (spec §3) and the row shape client.go serializes.
type Field struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Mode        string  `json:"mode,omitempty"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// Schema is the canonical table schema the migrate subcommand pushes.
var Schema = []Field{
	{Name: "timestamp", Type: "TIMESTAMP", Mode: "REQUIRED", Description: "When the download was recorded."},
	{Name: "url", Type: "STRING", Mode: "NULLABLE", Description: "The requested file URL."},
	{Name: "project", Type: "STRING", Mode: "NULLABLE", Description: "PEP 503 canonicalized project name."},
	{Name: "version", Type: "STRING", Mode: "NULLABLE", Description: "Release version parsed from the filename."},
	{Name: "filename", Type: "STRING", Mode: "NULLABLE", Description: "The distribution filename."},
	{Name: "tls_protocol", Type: "STRING", Mode: "NULLABLE"},
	{Name: "tls_cipher", Type: "STRING", Mode: "NULLABLE"},
	{Name: "country_code", Type: "STRING", Mode: "NULLABLE"},
	{
		Name: "details", Type: "RECORD", Mode: "NULLABLE",
		Description: "Installer identification parsed from the User-Agent.",
		Fields: []Field{
			{Name: "installer", Type: "STRING", Mode: "NULLABLE"},
			{Name: "installer_version", Type: "STRING", Mode: "NULLABLE"},
			{Name: "python", Type: "STRING", Mode: "NULLABLE"},
			{Name: "python_version", Type: "STRING", Mode: "NULLABLE"},
			{Name: "distro", Type: "STRING", Mode: "NULLABLE"},
			{Name: "distro_version", Type: "STRING", Mode: "NULLABLE"},
			{Name: "cpu", Type: "STRING", Mode: "NULLABLE"},
			{Name: "openssl_version", Type: "STRING", Mode: "NULLABLE"},
			{Name: "setuptools_version", Type: "STRING", Mode: "NULLABLE"},
			{Name: "raw", Type: "STRING", Mode: "REQUIRED"},
		},
	},
}
