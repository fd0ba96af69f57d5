package domain

// regionMap agrupa ciudades en regiones geográficas para limitar la
// exposición correlacionada (el mismo frente meteorológico mueve varios
// mercados a la vez).
var regionMap = map[string]string{
	"chicago": "midwest", "denver": "midwest",
	"dallas": "south", "houston": "south",
	"atlanta": "south", "miami": "south", "phoenix": "south",
	"boston": "northeast", "nyc": "northeast",
	"seattle": "pacific", "los-angeles": "pacific",
	"london": "europe", "paris": "europe", "ankara": "europe",
	"wellington": "southern", "buenos-aires": "southern", "sao-paulo": "southern",
	"seoul": "asia", "toronto": "north_america",
}

// RegionFor devuelve la región de una ciudad, u "other" si no está mapeada.
func RegionFor(city string) string {
	if r, ok := regionMap[city]; ok {
		return r
	}
	return "other"
}
