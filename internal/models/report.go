package models

// WIPMarker prefixes the title of a report that is still a work in progress
const WIPMarker = "【WIP】"

// ReportRecord is one row of the report listing
type ReportRecord struct {
	Title    string // Display title, prefixed with WIPMarker when IsWIP
	Subtitle string // "<username> <datetime>"
	URL      string // Absolute report URL
	IsWIP    bool
	IconPath string // Local path of the author's cached avatar
}

// LauncherIcon points the launcher at a local icon file
type LauncherIcon struct {
	Path string `json:"path"`
}

// LauncherItem is the launcher's view of a report. Arg is the action target.
type LauncherItem struct {
	Title    string       `json:"title"`
	Subtitle string       `json:"subtitle"`
	Arg      string       `json:"arg"`
	Wip      bool         `json:"wip"`
	Icon     LauncherIcon `json:"icon"`
}

// LauncherOutput is the document written to standard output
type LauncherOutput struct {
	Items []LauncherItem `json:"items"`
}

// ToLauncherItem converts a record into its launcher representation
func (r ReportRecord) ToLauncherItem() LauncherItem {
	return LauncherItem{
		Title:    r.Title,
		Subtitle: r.Subtitle,
		Arg:      r.URL,
		Wip:      r.IsWIP,
		Icon:     LauncherIcon{Path: r.IconPath},
	}
}

// NewLauncherOutput builds the output document. Items is never nil so an empty
// listing serializes as [].
func NewLauncherOutput(records []ReportRecord) *LauncherOutput {
	items := make([]LauncherItem, 0, len(records))
	for _, r := range records {
		items = append(items, r.ToLauncherItem())
	}
	return &LauncherOutput{Items: items}
}
