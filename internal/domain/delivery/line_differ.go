package delivery

import (
	"math"
	"sort"

	"github.com/jhoicas/Entregas-api/internal/domain"
	"github.com/jhoicas/Entregas-api/internal/domain/entity"
)

// Line par (producto, cantidad) tal como llega en una solicitud de entrega.
type Line struct {
	ProductID string
	Quantity  int64
}

// SignedOp operación de stock necesaria para reconciliar un producto (siempre Value > 0).
type SignedOp struct {
	ProductID string
	Operation entity.StockOperation // ADD o REMOVE
	Value     int64
}

// MergeLines suma las cantidades de líneas con el mismo producto y descarta las que quedan en 0.
// Rechaza producto vacío, cantidades negativas o una suma que desborda int64. El resultado queda ordenado por producto.
func MergeLines(lines []Line) ([]Line, error) {
	byProduct := make(map[string]int64, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 0 {
			return nil, domain.ErrInvalidInput
		}
		if l.Quantity > math.MaxInt64-byProduct[l.ProductID] {
			return nil, domain.ErrInvalidInput
		}
		byProduct[l.ProductID] += l.Quantity
	}
	merged := make([]Line, 0, len(byProduct))
	for productID, qty := range byProduct {
		if qty == 0 {
			continue
		}
		merged = append(merged, Line{ProductID: productID, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged, nil
}

// Diff calcula las operaciones de stock entre las líneas anteriores y las nuevas (ambas ya fusionadas).
//
//	solo en nuevas      -> REMOVE nueva
//	en ambas, d = n - o -> d > 0: REMOVE d; d < 0: ADD |d|; d == 0: nada
//	solo en anteriores  -> ADD anterior (la mercadería vuelve al stock)
//
// Función pura: sin I/O, resultado ordenado por producto.
func Diff(oldLines, newLines []Line) []SignedOp {
	oldQty := make(map[string]int64, len(oldLines))
	for _, l := range oldLines {
		oldQty[l.ProductID] += l.Quantity
	}
	newQty := make(map[string]int64, len(newLines))
	for _, l := range newLines {
		newQty[l.ProductID] += l.Quantity
	}

	var ops []SignedOp
	for productID, n := range newQty {
		d := n - oldQty[productID]
		switch {
		case d > 0:
			ops = append(ops, SignedOp{ProductID: productID, Operation: entity.StockOperationRemove, Value: d})
		case d < 0:
			ops = append(ops, SignedOp{ProductID: productID, Operation: entity.StockOperationAdd, Value: -d})
		}
	}
	for productID, o := range oldQty {
		if _, ok := newQty[productID]; ok || o <= 0 {
			continue
		}
		ops = append(ops, SignedOp{ProductID: productID, Operation: entity.StockOperationAdd, Value: o})
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ProductID < ops[j].ProductID })
	return ops
}

// LinesFromEntity convierte las líneas persistidas al formato del differ.
func LinesFromEntity(lines []entity.DeliveryLine) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, Line{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}
