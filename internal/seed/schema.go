package seed

// File is the top-level structure of the seed YAML.
//
//	site:
//	  title: My links
//	categories:
//	  - name: Dev
//	    children:
//	      - name: Go
//	websites:
//	  - name: Go
//	    url: https://go.dev
//	    category: Dev/Go
type File struct {
	Site       *Site      `yaml:"site,omitempty"`
	Categories []Category `yaml:"categories,omitempty"`
	Websites   []Website  `yaml:"websites,omitempty"`
	Friends    []Friend   `yaml:"friends,omitempty"`
}

type Site struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	Footer      string `yaml:"footer,omitempty"`
}

type Category struct {
	Name     string     `yaml:"name"`
	Icon     string     `yaml:"icon,omitempty"`
	Children []Category `yaml:"children,omitempty"`
}

// Website.Category is a category name, or "Parent/Child" for a subcategory.
type Website struct {
	Name        string   `yaml:"name"`
	URL         string   `yaml:"url"`
	Description string   `yaml:"description,omitempty"`
	Category    string   `yaml:"category"`
	Icon        string   `yaml:"icon,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

type Friend struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Icon        string `yaml:"icon,omitempty"`
	Description string `yaml:"description,omitempty"`
}
