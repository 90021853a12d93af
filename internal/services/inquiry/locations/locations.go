// Package locations lists Nigerian states and their major cities for
// delivery addresses.
package locations

import (
	"maps"
	"slices"
	"strings"
)

var cities = map[string][]string{
	"Abia":        {"Aba", "Umuahia", "Arochukwu", "Ohafia", "Bende", "Isiala Ngwa"},
	"Adamawa":     {"Yola", "Mubi", "Jimeta", "Numan", "Ganye", "Gombi"},
	"Akwa Ibom":   {"Uyo", "Ikot Ekpene", "Eket", "Oron", "Abak", "Ikot Abasi"},
	"Anambra":     {"Awka", "Onitsha", "Nnewi", "Ekwulobia", "Agulu", "Ihiala"},
	"Bauchi":      {"Bauchi", "Azare", "Misau", "Jama'are", "Katagum", "Ningi"},
	"Bayelsa":     {"Yenagoa", "Brass", "Sagbama", "Ogbia", "Nembe", "Ekeremor"},
	"Benue":       {"Makurdi", "Gboko", "Otukpo", "Katsina-Ala", "Oturkpo", "Vandeikya"},
	"Borno":       {"Maiduguri", "Bama", "Biu", "Dikwa", "Gubio", "Gwoza"},
	"Cross River": {"Calabar", "Ogoja", "Ikom", "Obudu", "Ugep", "Akamkpa"},
	"Delta":       {"Asaba", "Warri", "Sapele", "Ughelli", "Agbor", "Kwale"},
	"Ebonyi":      {"Abakaliki", "Afikpo", "Onueke", "Ezza", "Ishielu", "Ikwo"},
	"Edo":         {"Benin City", "Auchi", "Ekpoma", "Uromi", "Irrua", "Igarra"},
	"Ekiti":       {"Ado Ekiti", "Ikere", "Efon Alaaye", "Ijero", "Omuo Ekiti", "Ise Ekiti"},
	"Enugu":       {"Enugu", "Nsukka", "Oji River", "Agbani", "Awgu", "Udi"},
	"FCT":         {"Abuja", "Gwagwalada", "Kubwa", "Kuje", "Nyanya", "Lugbe", "Maitama", "Asokoro"},
	"Gombe":       {"Gombe", "Kumo", "Deba", "Billiri", "Kaltungo", "Nafada"},
	"Imo":         {"Owerri", "Orlu", "Okigwe", "Oguta", "Mbaise", "Nkwerre"},
	"Jigawa":      {"Dutse", "Hadejia", "Gumel", "Birnin Kudu", "Kazaure", "Ringim"},
	"Kaduna":      {"Kaduna", "Zaria", "Kafanchan", "Kagoro", "Saminaka", "Lere"},
	"Kano":        {"Kano", "Wudil", "Bichi", "Gwarzo", "Rano", "Kiru"},
	"Katsina":     {"Katsina", "Daura", "Funtua", "Malumfashi", "Dutsin-Ma", "Kankia"},
	"Kebbi":       {"Birnin Kebbi", "Argungu", "Jega", "Yauri", "Zuru", "Gwandu"},
	"Kogi":        {"Lokoja", "Okene", "Idah", "Kabba", "Ankpa", "Koton Karfe"},
	"Kwara":       {"Ilorin", "Offa", "Jebba", "Lafiagi", "Patigi", "Share"},
	"Lagos":       {"Ikeja", "Lagos Island", "Victoria Island", "Lekki", "Ikorodu", "Epe", "Badagry", "Ajah", "Surulere", "Yaba"},
	"Nasarawa":    {"Lafia", "Keffi", "Akwanga", "Nasarawa", "Doma", "Karu"},
	"Niger":       {"Minna", "Bida", "Kontagora", "Suleja", "Lapai", "New Bussa"},
	"Ogun":        {"Abeokuta", "Ijebu Ode", "Sagamu", "Ilishan Remo", "Ota", "Ilaro", "Ayetoro", "Ijebu Igbo"},
	"Ondo":        {"Akure", "Ondo", "Owo", "Ore", "Ikare", "Okitipupa"},
	"Osun":        {"Osogbo", "Ile Ife", "Ilesa", "Ede", "Iwo", "Ejigbo"},
	"Oyo":         {"Ibadan", "Ogbomoso", "Oyo", "Iseyin", "Saki", "Eruwa"},
	"Plateau":     {"Jos", "Bukuru", "Pankshin", "Shendam", "Langtang", "Mangu"},
	"Rivers":      {"Port Harcourt", "Obio-Akpor", "Eleme", "Okrika", "Bonny", "Degema"},
	"Sokoto":      {"Sokoto", "Tambuwal", "Gwadabawa", "Wurno", "Goronyo", "Bodinga"},
	"Taraba":      {"Jalingo", "Wukari", "Bali", "Ibi", "Takum", "Gembu"},
	"Yobe":        {"Damaturu", "Potiskum", "Gashua", "Nguru", "Geidam", "Buni Yadi"},
	"Zamfara":     {"Gusau", "Kaura Namoda", "Talata Mafara", "Bungudu", "Anka", "Tsafe"},
}

// States returns every state name in alphabetical order.
func States() []string {
	return slices.Sorted(maps.Keys(cities))
}

// Cities returns the major cities of state, or nil for an unknown state.
func Cities(state string) []string {
	return slices.Clone(cities[state])
}

// Valid reports whether state exists and, when city is set, whether it is one
// of the state's cities. Matching ignores case and surrounding spaces.
func Valid(state, city string) bool {
	canonical, ok := lookupState(state)
	if !ok {
		return false
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return true
	}
	for _, c := range cities[canonical] {
		if strings.EqualFold(c, city) {
			return true
		}
	}
	return false
}

// Canonical returns the stored spelling of state.
func Canonical(state string) (string, bool) {
	return lookupState(state)
}

func lookupState(state string) (string, bool) {
	state = strings.TrimSpace(state)
	if _, ok := cities[state]; ok {
		return state, true
	}
	for name := range cities {
		if strings.EqualFold(name, state) {
			return name, true
		}
	}
	return "", false
}
