package provider

import "strings"

// categoryKeywords is checked in order; the first category with a keyword
// contained in any of the place's types wins.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"Accommodation", []string{"lodging", "hotel", "hostel", "motel", "bed_and_breakfast", "campground", "camping", "guest_house"}},
	{"Food & Drink", []string{"restaurant", "cafe", "coffee", "bakery", "food", "meal", "bar", "pub", "winery", "brewery", "ice_cream"}},
	{"Wellness", []string{"spa", "sauna", "massage", "wellness", "gym", "fitness", "yoga"}},
	{"Adventure & Sports", []string{"sports", "ski", "climbing", "golf", "stadium", "surf", "diving"}},
	{"Festival & Event", []string{"festival", "event", "concert", "fair"}},
	{"Culture", []string{"museum", "art_gallery", "church", "mosque", "synagogue", "temple", "historical", "monument", "cultural", "library", "performing_arts"}},
	{"Entertainment & Leisure", []string{"amusement", "night_club", "movie_theater", "casino", "aquarium", "bowling", "tourist_attraction"}},
	{"Nature & Outdoor", []string{"park", "beach", "hiking", "natural_feature", "garden", "zoo", "lake", "mountain", "marina"}},
}

// Categorize maps provider type tags onto one of model.DefaultCategories. It
// returns "" when nothing matches.
func Categorize(types []string) string {
	for _, entry := range categoryKeywords {
		for _, t := range types {
			lower := strings.ToLower(t)
			for _, kw := range entry.keywords {
				if strings.Contains(lower, kw) {
					return entry.category
				}
			}
		}
	}
	return ""
}
