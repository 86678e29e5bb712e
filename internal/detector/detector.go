// Package detector сравнивает сохранённое состояние товара со свежим снимком.
//
// Пакет не имеет побочных эффектов: вызывающий код сам сохраняет
// обновлённый товар и записи журнала изменений.
package detector

import (
	"time"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
)

// Outcome: результат сравнения одного товара со снимком.
type Outcome struct {
	Before model.Item
	After  model.Item

	Price        *model.PriceChangeLog        // nil, если цена не изменилась
	Availability *model.AvailabilityChangeLog // nil, если ни один вариант не переключился

	// Changed: переключившиеся варианты в порядке нового снимка.
	Changed []model.VariantState
}

// Detect сравнивает товар со снимком.
func Detect(item model.Item, snap model.ProductSnapshot, now time.Time) Outcome {
	now = now.UTC()
	out := Outcome{Before: item, After: item}
	out.Before.Availability = model.CloneAvailability(item.Availability)

	// сравниваем с той точностью, с которой цена хранится
	price := model.RoundPrice(snap.Price)
	if dir := model.ResolveDirection(model.RoundPrice(item.CurrentPrice), price); dir != model.DirectionNone {
		out.Price = &model.PriceChangeLog{
			ItemID:      item.ID,
			PriceBefore: item.CurrentPrice,
			PriceNow:    price,
			Direction:   dir,
			CheckedAt:   now,
		}
		out.After.ApplyPrice(price)
	}

	out.Changed = diffVariants(item.Availability, snap.Availability)
	if len(out.Changed) > 0 {
		out.Availability = &model.AvailabilityChangeLog{
			ItemID:     item.ID,
			InfoBefore: model.CloneAvailability(item.Availability),
			InfoNow:    model.CloneAvailability(snap.Availability),
			CheckedAt:  now,
		}
	}
	out.After.Availability = model.CloneAvailability(snap.Availability)
	return out
}

// HasChanges: есть ли хотя бы одно реальное изменение (цена или наличие).
func (o Outcome) HasChanges() bool {
	return o.Price != nil || o.Availability != nil
}

// PriceChanged: изменилась ли цена.
func (o Outcome) PriceChanged() bool {
	return o.Price != nil
}

// NeedsUpdate: нужно ли сохранять товар. Кроме реальных изменений сюда
// попадает смена состава вариантов, которая событием не считается.
func (o Outcome) NeedsUpdate() bool {
	return o.HasChanges() || !model.SameAvailability(o.Before.Availability, o.After.Availability)
}

// ChangesFor возвращает изменения наличия, интересные подписке с данным фильтром.
// Пустой фильтр означает все варианты; иначе порядок берётся из фильтра.
func (o Outcome) ChangesFor(filter []string) []model.VariantState {
	if len(o.Changed) == 0 {
		return nil
	}
	if len(filter) == 0 {
		return model.CloneAvailability(o.Changed)
	}
	byName := make(map[string]model.VariantState, len(o.Changed))
	for _, v := range o.Changed {
		byName[v.Name] = v
	}
	var res []model.VariantState
	for _, name := range filter {
		if v, ok := byName[name]; ok {
			res = append(res, v)
		}
	}
	return res
}

// diffVariants сравнивает только варианты, присутствующие в обоих снимках:
// появление или исчезновение варианта в списке событием не является.
func diffVariants(before, now []model.VariantState) []model.VariantState {
	if len(before) == 0 || len(now) == 0 {
		return nil
	}
	prev := make(map[string]bool, len(before))
	for _, v := range before {
		prev[v.Name] = v.Available
	}
	var changed []model.VariantState
	for _, v := range now {
		if was, ok := prev[v.Name]; ok && was != v.Available {
			changed = append(changed, v)
		}
	}
	return changed
}
