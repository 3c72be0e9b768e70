package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Category is one of the fixed expense categories of the ledger.
type Category string

const (
	CategoryFood      Category = "food"
	CategoryTransport Category = "transport"
	CategoryShopping  Category = "shopping"
	CategoryHotel     Category = "hotel"
	CategoryOther     Category = "other"
)

// CategoryInfo is the display metadata for a category.
type CategoryInfo struct {
	ID    Category `json:"id"`
	Label string   `json:"label"`
	Icon  string   `json:"icon"`
}

var categoryInfos = []CategoryInfo{
	{ID: CategoryFood, Label: "อาหาร", Icon: "🍜"},
	{ID: CategoryTransport, Label: "เดินทาง", Icon: "🚕"},
	{ID: CategoryShopping, Label: "ช็อปปิ้ง", Icon: "🛍️"},
	{ID: CategoryHotel, Label: "ที่พัก", Icon: "🏨"},
	{ID: CategoryOther, Label: "อื่นๆ", Icon: "📝"},
}

// Categories returns every category in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categoryInfos))
	copy(out, categoryInfos)
	return out
}

// ParseCategory validates a category id.
func ParseCategory(id string) (Category, error) {
	for _, info := range categoryInfos {
		if string(info.ID) == id {
			return info.ID, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", id)
}

// Info returns the display metadata for c, falling back to other.
func (c Category) Info() CategoryInfo {
	for _, info := range categoryInfos {
		if info.ID == c {
			return info
		}
	}
	return categoryInfos[len(categoryInfos)-1]
}

// CategoryRule maps a keyword pattern to the category it implies.
type CategoryRule struct {
	Category Category
	Pattern  *regexp.Regexp
}

// CategoryKeywordTable is checked top to bottom; the first rule whose
// pattern appears anywhere in the text decides the category. Food comes
// before transport so "GrabFood" is food, not a Grab ride.
var CategoryKeywordTable = []CategoryRule{
	keywordRule(CategoryFood,
		"อาหาร", "ร้านอาหาร", "กาแฟ", "ก๋วยเตี๋ยว", "ชาบู", "หมูกระทะ", "เซเว่น", "สตาร์บัคส์",
		"grabfood", "grab food", "foodpanda", "lineman", "line man", "robinhood",
		"restaurant", "cafe", "coffee", "starbucks", "amazon cafe", "kfc", "mcdonald", "7-eleven", "7-11",
	),
	keywordRule(CategoryTransport,
		"แท็กซี่", "รถไฟฟ้า", "รถไฟ", "น้ำมัน", "ทางด่วน", "เดินทาง", "ปตท", "บางจาก",
		"grab", "bolt", "taxi", "bts", "mrt", "airport rail", "ptt", "shell", "bangchak", "fuel", "parking",
	),
	keywordRule(CategoryShopping,
		"ช็อปปิ้ง", "ช้อปปิ้ง", "เซ็นทรัล", "บิ๊กซี", "โลตัส", "แม็คโคร", "ห้าง",
		"shopee", "lazada", "central", "big c", "lotus", "makro", "uniqlo", "watsons", "boots", "mall", "shopping",
	),
	keywordRule(CategoryHotel,
		"โรงแรม", "ที่พัก", "รีสอร์ท",
		"hotel", "resort", "hostel", "agoda", "booking.com", "airbnb",
	),
}

func keywordRule(category Category, keywords ...string) CategoryRule {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return CategoryRule{
		Category: category,
		Pattern:  regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`),
	}
}

// GuessCategory returns the first category whose keywords appear in text,
// or CategoryOther.
func GuessCategory(text string) Category {
	for _, rule := range CategoryKeywordTable {
		if rule.Pattern.MatchString(text) {
			return rule.Category
		}
	}
	return CategoryOther
}
