// Package domain models nearby emergency and health services (hospitals,
// clinics, pharmacies, food banks) and the pure functions that normalize and
// rank them.
//
// # Data Sources
//
// Live data comes from the OpenStreetMap Overpass API. Each element carries an
// id, a type (node, way or relation), optional direct coordinates, an optional
// "center" for areas (requested with "out center") and a free-form tag map:
//
//	{"type":"way","id":42,"center":{"lat":24.86,"lon":67.0},
//	 "tags":{"amenity":"hospital","name":"City Hospital","addr:street":"Shahrah-e-Faisal"}}
//
// When Overpass fails or returns nothing, a bundled static dataset is used. Its
// items are already close to the record shape:
//
//	{"id":1,"name":"Civil Hospital","type":"hospital","address":"Baba-e-Urdu Rd",
//	 "phone":"021-99215740","lat":24.8589,"lng":67.0104,"rating":4.2}
//
// Both shapes are mapped to [RawElement] by their adapters before [Normalize].
//
// # Category Table
//
// Categories are derived from the amenity, healthcare and (static) type tags,
// evaluated top to bottom, first match wins:
//
//	hospital            -> hospital
//	clinic, doctors     -> clinic
//	pharmacy            -> pharmacy
//	food bank, or social facility / charity mentioning "food" -> foodbank
//	any other social facility / charity                       -> foodbank
//	anything else       -> other
//
// # Identity
//
// Records keep the source id ("node/123" for Overpass, the dataset id for
// static items). Id-less elements get a name-based UUID over name and
// coordinates. The identity key is "<category>_<id>_<lat>_<lng>" with five
// decimals and is what favorites and map markers refer to. Deduplication uses
// a looser key: lower-cased name plus coordinates truncated to four decimals
// (about 11 m), keeping the first occurrence.
//
// # Distance
//
// Distances are haversine great-circle kilometres with R = 6371 km, kept at
// full precision for sorting and rounded to two decimals only for display.
package domain
