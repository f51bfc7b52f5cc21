package navigate

// Site describes one provider's listing page: where it lives and which
// selectors drive the facet form and the category walk. The target DOM has
// shifted several times, so everything the walk touches is configured here
// rather than inlined in the navigator.
type Site struct {
	ProviderID   string
	ProviderName string
	ListingURL   string
	Selectors    Selectors
}

type Selectors struct {
	// ResultsReady gates the initial load; a timeout here fails the run.
	ResultsReady string
	// FacetCheckbox matches every filter facet (age bands, categories,
	// locations). A single unfiltered query undercounts results, so the
	// navigator checks them all before submitting.
	FacetCheckbox string
	FacetSubmit   string

	CategoryToggle    string
	SubcategoryToggle string
	Entry             string
	ShowMore          string
}

// NVRC is the North Shore recreation provider the pipeline was built
// against; its listing widget renders everything client-side.
func NVRC() Site {
	return Site{
		ProviderID:   "nvrc",
		ProviderName: "North Vancouver Recreation & Culture",
		ListingURL:   "https://www.nvrc.ca/programs-memberships/find-program",
		Selectors: Selectors{
			ResultsReady:      ".bm-category-group",
			FacetCheckbox:     ".bm-filter-panel input[type=checkbox]",
			FacetSubmit:       ".bm-filter-panel button[type=submit]",
			CategoryToggle:    ".bm-category-group > .bm-group-header",
			SubcategoryToggle: ".bm-subcategory-group > .bm-group-header",
			Entry:             ".bm-course-row",
			ShowMore:          ".bm-show-more-link",
		},
	}
}
