package pricing

import "github.com/Leganyst/dance-studio/internal/model"

// PriceSource: откуда взята цена multi-абонемента на одну группу.
type PriceSource string

const (
	SourceSingleMatrix PriceSource = "single_matrix"
	SourceBundleHalf   PriceSource = "bundle_half"
	SourceFloor        PriceSource = "floor"
)

// FloorSingleGroupPrice — последняя ступень, цена, при которой абонемент
// всё ещё можно купить, если матрицы не настроены.
const FloorSingleGroupPrice = 400

// SingleGroupMultiPrice выбирает цену multi-абонемента на одну группу:
//  1. матрица цен на одну группу;
//  2. половина цены связки из двух групп (целочисленно);
//  3. FloorSingleGroupPrice.
func SingleGroupMultiPrice(cfg Config, dt model.DirectionType, lessons int) (int, PriceSource) {
	if price, ok := cfg.SinglePrices.Price(dt, lessons); ok {
		return price, SourceSingleMatrix
	}
	if price, ok := cfg.BundlePrices.Price(dt, 2, lessons); ok {
		return price / 2, SourceBundleHalf
	}
	return FloorSingleGroupPrice, SourceFloor
}
