// Package translate maps raw classifier labels to the spoken display string.
package translate

// builtinArabic covers the ImageNet labels the app is expected to meet indoors.
// Keys are the classifier's raw identifiers, comma-joined synonyms included.
var builtinArabic = map[string]string{
	"wall clock": "ساعة حائط",
	"traffic light, traffic signal, stoplight": "إشارة مرور",
	"sandal": "جزمه",
	"abaya":  "عبايه",
	"Abaya":  "عبايه",
	"backpack, back pack, knapsack, packsack, rucksack, haversack": "حقيبة",
	"mailbag, postbag":       "حقيبة",
	"carton":                 "كرتون",
	"analog clock":           "ساعة حائط",
	"strawberry":             "فراوله",
	"car":                    "سياره",
	"orange":                 "برتقال",
	"remote control, remote": "جهاز تحكم",
	"pineapple":              "اناناس",
	"running shoe":           "جزمة رياضية",
	"plastic bag":            "كيس بلاستيك",
	"toilet tissue, toilet paper, bathroom tissue": "مناديل",
	"computer keyboard, keypad":                    "لوحة مفاتيح",
	"mouse, computer mouse":                        "فأر حاسوب",
	"desktop computer":                             "كمبيوتر",
	"spotlight, spot":                              "ضوء",
	"cellphone":                                    "جوال",
	"banana":                                       "موز",
	"apple":                                        "تفاح",
	"desktop":                                      "مكتب",
	"website":                                      "موقع",
	"monitor":                                      "شاشة",
	"notebook, notebook computer":                  "جهاز لوحي",
	"keyboard":                                     "لوحة مفاتيح",
	"mouse":                                        "فأرة",
	"bottle":                                       "زجاجة",
	"chair":                                        "كرسي",
	"table":                                        "طاولة",
	"phone":                                        "هاتف",
	"pen":                                          "قلم",
	"book":                                         "كتاب",
	"laptop, laptop computer":                      "حاسوب محمول",
	"tv":                                           "تلفاز",
	"cup":                                          "كوب",
	"lamp":                                         "مصباح",
	"shoe":                                         "حذاء",
	"bag":                                          "حقيبة",
	"glasses":                                      "نظارات",
	"watch":                                        "ساعة",
	"fan":                                          "مروحة",
	"door":                                         "باب",
	"window":                                       "نافذة",
	"plant":                                        "نبتة",
	"remote":                                       "جهاز تحكم",
	"pillow":                                       "وسادة",
	"bed":                                          "سرير",
	"mirror":                                       "مرآة",
	"clock":                                        "ساعة حائط",
	"towel":                                        "منشفة",
	"toothbrush":                                   "فرشاة أسنان",
	"soap":                                         "صابون",
	"sink":                                         "مغسلة",
	"barber chair":                                 "كرسي",
	"water bottle":                                 "قارورة مياه",
	"paper towel":                                  "مناديل",
	"rubber eraser, rubber, pencil eraser":         "ممحاة",
}

// Translator is an immutable label table. The zero value passes every label through.
type Translator struct {
	table  map[string]string
	values map[string]struct{}
}

// New builds a translator from the built-in table overlaid with extra entries.
// Empty keys and values in extra are ignored.
func New(extra map[string]string) *Translator {
	table := make(map[string]string, len(builtinArabic)+len(extra))
	for k, v := range builtinArabic {
		table[k] = v
	}
	for k, v := range extra {
		if k == "" || v == "" {
			continue
		}
		table[k] = v
	}

	values := make(map[string]struct{}, len(table))
	for _, v := range table {
		values[v] = struct{}{}
	}
	return &Translator{table: table, values: values}
}

// Translate returns the mapped display string, or raw unchanged when unmapped.
func (t *Translator) Translate(raw string) string {
	if t == nil {
		return raw
	}
	if v, ok := t.table[raw]; ok {
		return v
	}
	return raw
}

// IsTranslation reports whether text is one of the table's display values.
func (t *Translator) IsTranslation(text string) bool {
	if t == nil {
		return false
	}
	_, ok := t.values[text]
	return ok
}

// Len returns the number of table entries.
func (t *Translator) Len() int {
	if t == nil {
		return 0
	}
	return len(t.table)
}
