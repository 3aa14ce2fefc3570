package patch

// Info describes one compatibility component.
type Info struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Package     string   `json:"package"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Applied     bool     `json:"applied"`
}

// Version is the version reported for every component.
const Version = "1.0.0"

// Catalog lists the compatibility components. executorInstalled and
// functionsInstalled fill the Applied flags; the report adjustment is a
// library and always counts as applied.
func Catalog(executorInstalled, functionsInstalled bool) []Info {
	return []Info{
		{
			Name:        "resilient_executor",
			Version:     Version,
			Package:     "github.com/nnnkkk7/pgcompat/pkg/query",
			Description: "Statement translation and aborted-transaction recovery around the session",
			Features: []string{
				"IF() to CASE WHEN rewriting",
				"Index hint removal (FORCE/USE/IGNORE INDEX)",
				"IFNULL to COALESCE, DATE_FORMAT to TO_CHAR",
				"Rollback and retry on aborted transactions",
			},
			Applied: executorInstalled,
		},
		{
			Name:        "report_group_by",
			Version:     Version,
			Package:     "github.com/nnnkkk7/pgcompat/pkg/report",
			Description: "GROUP BY column adjustment for trend reports",
			Features: []string{
				"Item-based GROUP BY fix",
				"Customer-based GROUP BY fix",
				"Supplier-based GROUP BY fix",
				"Project-based GROUP BY fix",
				"default_currency GROUP BY fix",
			},
			Applied: true,
		},
		{
			Name:        "compat_functions",
			Version:     Version,
			Package:     "github.com/nnnkkk7/pgcompat/pkg/compat",
			Description: "Database functions emulating dialect-A built-ins",
			Features: []string{
				"GROUP_CONCAT aggregate",
				"unix_timestamp function",
				"timestampdiff function",
			},
			Applied: functionsInstalled,
		},
	}
}
