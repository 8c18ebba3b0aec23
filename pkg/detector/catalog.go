package detector

import (
	"SkinDetect/internal/entity"
	"encoding/json"
	"fmt"
	"os"
)

// Catalog is an immutable lookup of disease labels to descriptions.
type Catalog struct {
	entries []entity.CatalogEntry
	index   map[string]string
}

func NewCatalog(entries []entity.CatalogEntry) *Catalog {
	c := &Catalog{
		entries: make([]entity.CatalogEntry, len(entries)),
		index:   make(map[string]string, len(entries)),
	}
	copy(c.entries, entries)
	for _, e := range entries {
		c.index[e.Label] = e.Description
	}
	return c
}

// LoadCatalog reads a JSON array of {label, description} objects.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var entries []entity.CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog %s is empty", path)
	}

	return NewCatalog(entries), nil
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

func (c *Catalog) At(i int) entity.CatalogEntry {
	return c.entries[i]
}

func (c *Catalog) Labels() []string {
	labels := make([]string, len(c.entries))
	for i, e := range c.entries {
		labels[i] = e.Label
	}
	return labels
}

// Describe returns the description for label, or "" when it is unknown.
func (c *Catalog) Describe(label string) string {
	return c.index[label]
}

func SimulationCatalog() *Catalog {
	return NewCatalog([]entity.CatalogEntry{
		{Label: "Melanoma", Description: "Jenis kanker kulit yang berkembang dari sel melanosit"},
		{Label: "Psoriasis", Description: "Penyakit autoimun yang menyebabkan penumpukan sel kulit"},
		{Label: "Eczema", Description: "Kondisi kulit yang menyebabkan kulit menjadi merah dan gatal"},
		{Label: "Actinic Keratosis", Description: "Bercak kasar dan bersisik pada kulit akibat paparan sinar matahari"},
		{Label: "Basal Cell Carcinoma", Description: "Jenis kanker kulit yang paling umum"},
		{Label: "Benign Keratosis", Description: "Pertumbuhan kulit non-kanker yang umum"},
		{Label: "Dermatofibroma", Description: "Benjolan kulit jinak yang keras"},
		{Label: "Nevus", Description: "Tahi lalat atau tanda lahir pada kulit"},
	})
}

func ModelCatalog() *Catalog {
	return NewCatalog([]entity.CatalogEntry{
		{Label: "Acne", Description: "Peradangan pada folikel rambut dan kelenjar minyak yang menimbulkan komedo dan jerawat."},
		{Label: "Actinic Keratosis", Description: "Bercak kulit kasar dan bersisik akibat paparan sinar matahari jangka panjang, bisa menjadi prekanker."},
		{Label: "Benign Tumors", Description: "Kelainan kulit berupa tumor jinak yang tidak menyebar ke organ lain."},
		{Label: "Bullous", Description: "Kelompok penyakit kulit yang ditandai dengan gelembung atau lepuh berisi cairan."},
		{Label: "Candidiasis", Description: "Infeksi jamur Candida yang sering muncul di lipatan kulit yang lembap."},
		{Label: "Drug Eruption", Description: "Reaksi kulit terhadap obat, biasanya berupa ruam, kemerahan, atau gatal."},
		{Label: "Eczema", Description: "Peradangan kulit kronis yang menyebabkan kemerahan, gatal, dan kulit kering atau pecah."},
		{Label: "Infestations/Bites", Description: "Kelainan kulit akibat gigitan serangga atau infestasi parasit seperti tungau dan kutu."},
		{Label: "Lichen", Description: "Kelompok penyakit kulit dengan bercak atau papul kecil yang sering terasa gatal."},
		{Label: "Lupus", Description: "Penyakit autoimun yang dapat menimbulkan ruam khas pada kulit, termasuk di wajah."},
		{Label: "Moles", Description: "Tahi lalat atau nevus berpigmen yang biasanya jinak, tetapi perlu dipantau perubahannya."},
		{Label: "Psoriasis", Description: "Penyakit autoimun kronis yang menyebabkan plak merah bersisik pada kulit."},
		{Label: "Rosacea", Description: "Peradangan kulit wajah dengan kemerahan menetap, pembuluh darah tampak, dan kadang papul/pustul."},
		{Label: "Seborrheic Keratoses", Description: "Tumor jinak berwarna cokelat kehitaman dengan permukaan seperti tertempel di kulit."},
		{Label: "Skin Cancer", Description: "Kelainan kulit ganas yang dapat muncul sebagai benjolan, luka, atau bercak yang berubah bentuk/warna."},
		{Label: "Sun/Sunlight Damage", Description: "Kerusakan kulit karena paparan sinar matahari kronis, seperti keriput, bercak, atau perubahan warna."},
		{Label: "Tinea", Description: "Infeksi jamur dermatofit pada kulit, sering disebut kurap, dengan bercak melingkar."},
		{Label: "Unknown/Normal", Description: "Gambaran kulit yang tidak menunjukkan kelainan jelas atau dianggap dalam batas normal oleh model."},
		{Label: "Vascular Tumors", Description: "Lesi kulit yang berasal dari pembuluh darah, seperti hemangioma."},
		{Label: "Vasculitis", Description: "Peradangan pembuluh darah yang menimbulkan bercak atau purpura pada kulit."},
		{Label: "Vitiligo", Description: "Kehilangan pigmen kulit yang menyebabkan bercak putih tidak gatal."},
		{Label: "Warts", Description: "Kutil akibat infeksi virus HPV, sering muncul pada tangan, kaki, atau area lain."},
	})
}
