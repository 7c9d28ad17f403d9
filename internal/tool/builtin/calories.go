package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
	toolcore "github.com/harunnryd/foodiebot/internal/tool"
)

type dishCalories struct {
	KCal    int
	Portion string
}

// calorieTable holds approximate energy per standard serving.
var calorieTable = map[string]dishCalories{
	"nasi putih":     {KCal: 204, Portion: "1 piring (150 g)"},
	"nasi goreng":    {KCal: 267, Portion: "1 piring (150 g)"},
	"nasi uduk":      {KCal: 290, Portion: "1 piring (150 g)"},
	"nasi padang":    {KCal: 664, Portion: "1 bungkus"},
	"nasi kuning":    {KCal: 306, Portion: "1 piring (150 g)"},
	"mie goreng":     {KCal: 321, Portion: "1 piring (200 g)"},
	"mie ayam":       {KCal: 421, Portion: "1 mangkuk"},
	"bakso":          {KCal: 218, Portion: "1 mangkuk (10 butir)"},
	"soto ayam":      {KCal: 312, Portion: "1 mangkuk"},
	"rawon":          {KCal: 331, Portion: "1 mangkuk"},
	"rendang":        {KCal: 195, Portion: "1 potong (50 g)"},
	"sate ayam":      {KCal: 225, Portion: "10 tusuk tanpa bumbu"},
	"sate kambing":   {KCal: 340, Portion: "10 tusuk tanpa bumbu"},
	"ayam goreng":    {KCal: 260, Portion: "1 potong paha"},
	"ayam bakar":     {KCal: 210, Portion: "1 potong paha"},
	"gado-gado":      {KCal: 295, Portion: "1 piring"},
	"ketoprak":       {KCal: 350, Portion: "1 piring"},
	"pecel lele":     {KCal: 400, Portion: "1 porsi dengan sambal"},
	"gudeg":          {KCal: 290, Portion: "1 porsi"},
	"martabak manis": {KCal: 345, Portion: "2 potong"},
	"martabak telur": {KCal: 390, Portion: "2 potong"},
	"bubur ayam":     {KCal: 372, Portion: "1 mangkuk"},
	"siomay":         {KCal: 280, Portion: "1 porsi"},
	"pempek":         {KCal: 290, Portion: "1 porsi kapal selam"},
	"tempe goreng":   {KCal: 118, Portion: "2 potong"},
	"tahu goreng":    {KCal: 115, Portion: "2 potong"},
	"es teh manis":   {KCal: 90, Portion: "1 gelas"},
	"es kopi susu":   {KCal: 180, Portion: "1 gelas (250 ml)"},
	"es campur":      {KCal: 280, Portion: "1 mangkuk"},
	"pisang goreng":  {KCal: 190, Portion: "2 potong"},
	"pizza":          {KCal: 285, Portion: "1 slice"},
	"burger":         {KCal: 354, Portion: "1 buah"},
	"sushi":          {KCal: 200, Portion: "4 potong"},
	"ramen":          {KCal: 436, Portion: "1 mangkuk"},
	"salad":          {KCal: 150, Portion: "1 mangkuk"},
	"spaghetti":      {KCal: 380, Portion: "1 piring"},
	"dimsum":         {KCal: 180, Portion: "4 potong"},
	"kwetiau goreng": {KCal: 410, Portion: "1 piring"},
	"capcay":         {KCal: 200, Portion: "1 porsi"},
	"pecel":          {KCal: 270, Portion: "1 porsi"},
}

func init() {
	toolcore.RegisterBuiltin("calculate_calories", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &CaloriesTool{}, nil
	})
}

// CaloriesTool estimates calories for common dishes from a fixed table.
type CaloriesTool struct{}

func (t *CaloriesTool) Name() string { return "calculate_calories" }

func (t *CaloriesTool) Description() string {
	return "Perkirakan kalori makanan Indonesia populer (contoh: nasi goreng, bakso, rendang)"
}

func (t *CaloriesTool) ToolMetadata() toolcore.ToolMetadata {
	return builtinMetadata(toolcore.RiskLow, false, "nutrition.estimate")
}

func (t *CaloriesTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"food": map[string]interface{}{
				"type":        "string",
				"description": "Nama makanan atau minuman",
			},
			"portion": map[string]interface{}{
				"type":        "number",
				"description": "Jumlah porsi (default 1)",
				"minimum":     0,
			},
		},
		"required": []string{"food"},
	}
}

func (t *CaloriesTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args struct {
		Food    string  `json:"food"`
		Portion float64 `json:"portion"`
	}
	if err := decodeArgs(input, &args); err != nil {
		return nil, err
	}
	portion := args.Portion
	if portion <= 0 {
		portion = 1
	}

	name, dish, ok := lookupDish(args.Food)
	if !ok {
		return nil, toolcore.Fail(fmt.Sprintf("Data kalori untuk %q belum tersedia", strings.TrimSpace(args.Food)), fbErrors.ErrNotFound)
	}

	total := int(math.Round(float64(dish.KCal) * portion))
	return toolcore.Reply(map[string]interface{}{
		"food":             name,
		"portion":          portion,
		"serving":          dish.Portion,
		"kcal_per_serving": dish.KCal,
		"total_kcal":       total,
	}, fmt.Sprintf("%s (%g porsi) sekitar %d kkal", name, portion, total))
}

// lookupDish matches exactly first, then the longest table name contained in
// the query ("nasi goreng seafood" -> "nasi goreng").
func lookupDish(food string) (string, dishCalories, bool) {
	q := strings.Join(strings.Fields(strings.ToLower(food)), " ")
	if q == "" {
		return "", dishCalories{}, false
	}
	if d, ok := calorieTable[q]; ok {
		return q, d, true
	}

	names := make([]string, 0, len(calorieTable))
	for name := range calorieTable {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		if strings.Contains(q, name) {
			return name, calorieTable[name], true
		}
	}
	return "", dishCalories{}, false
}
