package catalog

const unsplash = "https://images.unsplash.com/"

// Categories returns the storefront categories in display order.
func Categories() []Category {
	return []Category{
		{ID: CategoryGrains, Title: "Premium Grains", Description: "Cleaned, stone-free rice, beans, and nutritious seeds."},
		{ID: CategoryProcessed, Title: "Authentic Flours", Description: "Traditional Elubo, Garri, and expertly processed starch staples."},
		{ID: CategoryOils, Title: "Pure Harvest Oils", Description: "Pure Palm Oil and authentic Nigerian seasonings."},
		{ID: CategoryProteins, Title: "Dried Proteins", Description: "Sand-free dried fish and high-protein essentials."},
	}
}

// FallbackProducts is the built-in catalog used when no products are stored.
func FallbackProducts() []Product {
	return []Product{
		{
			ID:          "1",
			Name:        "Honey Beans",
			LocalName:   "Oloyin",
			Description: "Triple-sorted, stone-free, and naturally sweet. Direct from farm harvest.",
			Category:    CategoryGrains,
			Tags:        []Tag{TagHome, TagRetail},
			Image:       unsplash + "photo-1551462147-ff29053fab3e?auto=format&fit=crop&q=80&w=800",
			Details:     "Best for Gbegiri soup or local porridge. Sourced from North-Central Nigeria.",
			StockStatus: InStock,
		},
		{
			ID:          "2",
			Name:        "Short Grain Rice",
			LocalName:   "Iresi Gbebi",
			Description: "Properly parboiled, sand-free rice that swells perfectly for family meals.",
			Category:    CategoryGrains,
			Tags:        []Tag{TagHome, TagBusiness},
			Image:       unsplash + "photo-1586201375761-83865001e31c?auto=format&fit=crop&q=80&w=800",
			Details:     "Ideal for authentic Party Jollof. Parboiled with zero chemical additives.",
			StockStatus: InStock,
		},
		{
			ID:          "3",
			Name:        "Yam Flour",
			LocalName:   "Elubo Isu",
			Description: "Finely milled and sun-dried. The gold standard for smooth, dark Amala.",
			Category:    CategoryProcessed,
			Tags:        []Tag{TagHome, TagRetail},
			Image:       unsplash + "photo-1626197031507-c17099753214?auto=format&fit=crop&q=80&w=800",
			Details:     "Traditional milling from aged yams for that premium dark texture.",
			StockStatus: InStock,
		},
		{
			ID:          "4",
			Name:        "Pure Palm Oil",
			LocalName:   "Epo Pupa",
			Description: "Unadulterated, low-acid, and richly colored red oil from the first press.",
			Category:    CategoryOils,
			Tags:        []Tag{TagRetail, TagBusiness},
			Image:       unsplash + "photo-1594910413554-e696f5b3f26e?auto=format&fit=crop&q=80&w=800",
			Details:     "Sourced from virgin presses in Oyo state. High in natural Vitamin A.",
			StockStatus: InStock,
		},
		{
			ID:          "5",
			Name:        "White Garri",
			LocalName:   "Garri Funfun",
			Description: "Dry, crispy, and perfectly fermented for that authentic sharp taste.",
			Category:    CategoryProcessed,
			Tags:        []Tag{TagHome, TagRetail},
			Image:       unsplash + "photo-1600333859399-247514167993?auto=format&fit=crop&q=80&w=800",
			Details:     "Ijebu-style fermentation. Extra dry for drinking or solid Eba.",
			StockStatus: InStock,
		},
		{
			ID:          "6",
			Name:        "Dried Catfish",
			LocalName:   "Eja Gbigbe",
			Description: "Oven-dried to preserve nutrients. Clean, sand-free, and vacuum sealed.",
			Category:    CategoryProteins,
			Tags:        []Tag{TagHome, TagBusiness},
			Image:       unsplash + "photo-1519708227418-c8fd9a32b7a2?auto=format&fit=crop&q=80&w=800",
			Details:     "Traditionally smoked to remove 98% moisture. Sand-free and grit-free.",
			StockStatus: InStock,
		},
	}
}

// ServingBlocks returns the audiences section content.
func ServingBlocks() []ServingBlock {
	return []ServingBlock{
		{
			Title:     "Families",
			Audience:  "Busy homes seeking purity.",
			Problems:  []string{"Expensive retail prices", "Poor food quality", "Market stress"},
			Solutions: []string{"Doorstep delivery", "Verified quality", "Pre-sorted grains"},
			Icon:      "🍲",
		},
		{
			Title:     "Institutions",
			Audience:  "Schools & Hospitals.",
			Problems:  []string{"Supply inconsistency", "Logistics headaches", "Poor hygiene"},
			Solutions: []string{"Scheduled supply", "Quality traceability", "Standardized grading"},
			Icon:      "🏛️",
		},
		{
			Title:     "Food Businesses",
			Audience:  "Caterers & Restaurants.",
			Problems:  []string{"Unreliable middlemen", "Fluctuating margins", "Impure ingredients"},
			Solutions: []string{"B2B pricing", "Direct sourcing", "Consistent supply"},
			Icon:      "👨‍🍳",
		},
	}
}

// Testimonials returns the customer quotes.
func Testimonials() []Testimonial {
	return []Testimonial{
		{Name: "Mrs. Adebisi", Role: "Homemaker", Content: "The Elubo from OUNJEEH is simply the best. My Amala has never been smoother!"},
		{Name: "Chef Damilola", Role: "Executive Chef", Content: "Demmy Agro-Allied understands quality. Their grains are clean and ready to cook."},
		{Name: "Greenwood Academy", Role: "Kitchen Lead", Content: "Reliable supply is critical for our students. OUNJEEH delivers every single time."},
	}
}
