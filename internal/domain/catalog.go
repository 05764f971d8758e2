package domain

// Environment is a fixed room or area of a property subject to inspection.
type Environment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// Category is a building-system aspect an Observation belongs to.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

type PropertyType struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var PropertyTypes = []PropertyType{
	{Value: "apartamento", Label: "Apartamento"},
	{Value: "casa", Label: "Casa"},
	{Value: "comercial", Label: "Comercial"},
	{Value: "terreno", Label: "Terreno"},
}

var Environments = []Environment{
	{ID: "sala", Name: "Sala de Estar", Icon: "home", Color: "blue", Description: "Área social principal do imóvel"},
	{ID: "cozinha", Name: "Cozinha", Icon: "chef-hat", Color: "orange", Description: "Área de preparo de alimentos"},
	{ID: "quarto1", Name: "Quarto Principal", Icon: "bed", Color: "purple", Description: "Dormitório principal/suíte"},
	{ID: "quarto2", Name: "Quarto 2", Icon: "bed", Color: "indigo", Description: "Segundo dormitório"},
	{ID: "banheiro1", Name: "Banheiro Social", Icon: "bath", Color: "cyan", Description: "Banheiro de uso comum"},
	{ID: "banheiro2", Name: "Banheiro Suíte", Icon: "bath", Color: "teal", Description: "Banheiro privativo da suíte"},
	{ID: "varanda", Name: "Varanda/Sacada", Icon: "tree-pine", Color: "green", Description: "Área externa coberta"},
	{ID: "garagem", Name: "Garagem", Icon: "car", Color: "gray", Description: "Área para estacionamento"},
	{ID: "areas_comuns", Name: "Áreas Comuns", Icon: "building", Color: "yellow", Description: "Espaços compartilhados do edifício"},
}

var Categories = []Category{
	{ID: "pisos", Name: "Pisos e Azulejos", Icon: "layers", Color: "amber", Description: "Revestimentos de piso e parede"},
	{ID: "portas", Name: "Portas e Janelas", Icon: "door-open", Color: "brown", Description: "Esquadrias e vedações"},
	{ID: "pintura", Name: "Pintura e Acabamentos", Icon: "paintbrush", Color: "pink", Description: "Acabamentos e pintura"},
	{ID: "eletrica", Name: "Instalações Elétricas", Icon: "zap", Color: "yellow", Description: "Sistema elétrico e iluminação"},
	{ID: "hidraulica", Name: "Instalações Hidráulicas", Icon: "droplets", Color: "blue", Description: "Sistema hidráulico e sanitário"},
	{ID: "loucas", Name: "Louças e Metais", Icon: "wrench", Color: "gray", Description: "Louças sanitárias e metais"},
	{ID: "varanda_cat", Name: "Varanda/Sacada", Icon: "tree-pine", Color: "green", Description: "Estrutura e acabamentos da varanda"},
	{ID: "externas", Name: "Áreas Externas", Icon: "mountain", Color: "emerald", Description: "Jardins, quintais e áreas descobertas"},
	{ID: "garagem_cat", Name: "Vaga de Garagem", Icon: "car", Color: "slate", Description: "Estrutura e demarcação da garagem"},
	{ID: "comuns", Name: "Áreas Comuns", Icon: "users", Color: "orange", Description: "Espaços compartilhados do condomínio"},
	{ID: "elevadores", Name: "Elevadores e Escadas", Icon: "arrow-up-down", Color: "red", Description: "Sistemas de circulação vertical"},
}

var (
	environmentsByID = indexEnvironments()
	categoriesByID   = indexCategories()
)

func indexEnvironments() map[string]*Environment {
	m := make(map[string]*Environment, len(Environments))
	for i := range Environments {
		m[Environments[i].ID] = &Environments[i]
	}
	return m
}

func indexCategories() map[string]*Category {
	m := make(map[string]*Category, len(Categories))
	for i := range Categories {
		m[Categories[i].ID] = &Categories[i]
	}
	return m
}

// LookupEnvironment returns the catalog entry for id, or nil.
func LookupEnvironment(id string) *Environment {
	return environmentsByID[id]
}

// LookupCategory returns the catalog entry for id, or nil.
func LookupCategory(id string) *Category {
	return categoriesByID[id]
}

// CategoryName returns the display name of a category, or the raw id when
// the category is not in the catalog.
func CategoryName(id string) string {
	if c := LookupCategory(id); c != nil {
		return c.Name
	}
	return id
}

func PropertyTypeLabel(value string) string {
	for _, t := range PropertyTypes {
		if t.Value == value {
			return t.Label
		}
	}
	return value
}
