package directory

import "strings"

// Search filters catalog by q, keeping catalog order. Criteria are ANDed:
// Text is a case-insensitive substring of Name or Specialization, Specialty
// and Location are exact matches. An empty query returns catalog itself.
func Search(catalog []Doctor, q Query) []Doctor {
	if q.IsEmpty() {
		return catalog
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))

	out := make([]Doctor, 0, len(catalog))
	for _, d := range catalog {
		if q.Specialty != "" && d.Specialization != q.Specialty {
			continue
		}
		if q.Location != "" && d.Location != q.Location {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(d.Name), text) &&
			!strings.Contains(strings.ToLower(d.Specialization), text) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Specialties returns the distinct specializations in first-seen order.
func Specialties(catalog []Doctor) []string {
	return distinct(catalog, func(d Doctor) string { return d.Specialization })
}

// Locations returns the distinct locations in first-seen order.
func Locations(catalog []Doctor) []string {
	return distinct(catalog, func(d Doctor) string { return d.Location })
}

func distinct(catalog []Doctor, field func(Doctor) string) []string {
	seen := make(map[string]bool, len(catalog))
	out := []string{}
	for _, d := range catalog {
		v := field(d)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
