// Package taxonomy holds the curated company and sector seed lists and the
// merge logic that combines them with user-contributed entries.
//
// Deduplication is exact-match and case-sensitive: the seed lists are
// curated by value, so "Acme" and "ACME" are distinct entries on purpose.
package taxonomy

import "sort"

type sectorGroup struct {
	Category   string
	Subsectors []string
}

var sectorGroups = []sectorGroup{
	{"Vendita", []string{
		"Vendita al dettaglio",
		"Vendita all'ingrosso",
		"E-commerce",
		"Agenti di commercio",
	}},
	{"Ristorazione", []string{
		"Ristoranti e bar",
		"Hotel e alberghi",
		"Catering e mense",
	}},
	{"Logistica", []string{
		"Trasporti e spedizioni",
		"Magazzino e stoccaggio",
		"Corrieri espressi (Rider)",
	}},
	{"Servizi alla Persona", []string{
		"Servizi di pulizie",
		"Assistenza anziani e badanti",
		"Babysitter e colf",
	}},
	{"IT e Tecnologia", []string{
		"Sviluppo software",
		"Consulenza IT",
		"Assistenza tecnica",
	}},
	{"Edilizia", []string{"Costruzioni", "Impiantistica", "Manutenzione"}},
	{"Call Center", []string{"Inbound", "Outbound", "Telemarketing"}},
	{"Agricoltura", []string{"Coltivazione", "Allevamento"}},
	{"Sanità", []string{"Infermieri", "Operatori socio-sanitari", "Personale ausiliario"}},
	{"Marketing e Comunicazione", []string{"Marketing digitale", "Eventi", "Pubbliche relazioni"}},
	{"Manifatturiero", []string{"Operaio generico", "Controllo qualità"}},
}

var topCompanies = []string{
	"Amazon Italia",
	"Poste Italiane",
	"Esselunga",
	"Conad",
	"Coop Italia",
	"Leroy Merlin Italia",
	"McDonald's Italia",
	"Deliveroo Italia",
	"Glovo",
	"Zara Italia",
	"Decathlon Italia",
	"MediaWorld",
}

// Sectors returns the flattened seed sector list, grouped order preserved.
func Sectors() []string {
	out := make([]string, 0, 32)
	for _, g := range sectorGroups {
		out = append(out, g.Subsectors...)
	}
	return out
}

// SectorsByCategory returns the seed hierarchy as shown in the report form.
func SectorsByCategory() map[string][]string {
	out := make(map[string][]string, len(sectorGroups))
	for _, g := range sectorGroups {
		out[g.Category] = append([]string(nil), g.Subsectors...)
	}
	return out
}

// TopCompanies returns the curated seed company list.
func TopCompanies() []string {
	return append([]string(nil), topCompanies...)
}

// Resolve merges a seed list with persisted user-contributed entries into a
// deduplicated, sorted sequence. Idempotent for fixed inputs.
func Resolve(seed, persisted []string) []string {
	seen := make(map[string]struct{}, len(seed)+len(persisted))
	out := make([]string, 0, len(seed)+len(persisted))
	for _, list := range [][]string{seed, persisted} {
		for _, v := range list {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// InSeed reports exact-string membership in a seed list.
func InSeed(seed []string, value string) bool {
	for _, v := range seed {
		if v == value {
			return true
		}
	}
	return false
}
