package services

import (
	"fmt"
	"sort"

	"github.com/indyforge/groupindustry/internal/models"
)

// MaxTreeDepth bounds the walk. Real blueprint chains are a handful of levels
// deep, so anything beyond this is a malformed (cyclic) tree.
const MaxTreeDepth = 32

// Sub-builds don't inherit the requested item's efficiency levels.
const (
	componentMELevel = 10
	componentTELevel = 20
)

// TreeNode is one blueprint node returned by the production tree builder.
type TreeNode struct {
	ProductTypeID int            `json:"product_type_id"`
	ProductName   string         `json:"product_name,omitempty"`
	Quantity      int64          `json:"quantity"`
	Runs          int64          `json:"runs"`
	Depth         int            `json:"depth"`
	ActivityType  string         `json:"activity_type"`
	HasCopy       bool           `json:"has_copy"`
	Materials     []TreeMaterial `json:"materials"`
}

// TreeMaterial is an input of a TreeNode. Buildable materials carry the
// subtree that produces them unless the type was excluded.
type TreeMaterial struct {
	TypeID       int       `json:"type_id"`
	TypeName     string    `json:"type_name"`
	Quantity     int64     `json:"quantity"`
	IsBuildable  bool      `json:"is_buildable"`
	ActivityType string    `json:"activity_type,omitempty"`
	Subtree      *TreeNode `json:"subtree,omitempty"`
}

// ItemTree pairs a requested item with the tree built for it.
type ItemTree struct {
	Item models.ProjectItem
	Tree *TreeNode
}

// BillOfMaterials is the merged result of every requested item's tree.
// Lines have no ProjectID yet; the caller assigns it on persist.
type BillOfMaterials struct {
	Materials []models.BomItem `json:"materials"`
	Jobs      []models.BomItem `json:"jobs"`
}

type bomKey struct {
	typeID   int
	isJob    bool
	jobGroup string
	activity string
}

type bomFrame struct {
	node  *TreeNode
	name  string
	group string
	runs  int64
	me    int
	te    int
	depth int
}

type bomAccumulator struct {
	lines map[bomKey]*models.BomItem
}

func (a *bomAccumulator) add(key bomKey, name string, qty int64, me, te int) {
	if line, ok := a.lines[key]; ok {
		line.RequiredQuantity += qty
		if name != "" && (line.TypeName == "" || name < line.TypeName) {
			line.TypeName = name
		}
		// Merged jobs plan for the least researched blueprint.
		line.MELevel = min(line.MELevel, me)
		line.TELevel = min(line.TELevel, te)
		return
	}
	a.lines[key] = &models.BomItem{
		TypeID:           key.typeID,
		TypeName:         name,
		IsJob:            key.isJob,
		JobGroup:         key.jobGroup,
		ActivityType:     key.activity,
		RequiredQuantity: qty,
		MELevel:          me,
		TELevel:          te,
	}
}

// AggregateBOM flattens the trees into one deduplicated bill of materials.
// Lines sharing (type, is_job, job_group, activity) are merged by summing their
// quantities and keep the lowest ME/TE seen, so the result does not depend on
// item order.
func AggregateBOM(items []ItemTree) (*BillOfMaterials, error) {
	acc := &bomAccumulator{lines: make(map[bomKey]*models.BomItem)}

	for _, it := range items {
		if it.Tree == nil {
			return nil, &UpstreamUnavailableError{
				Service: "tree_builder",
				Err:     fmt.Errorf("empty production tree for type %d", it.Item.TypeID),
			}
		}
		name := it.Item.TypeName
		if name == "" {
			name = it.Tree.ProductName
		}
		if err := acc.walk(bomFrame{
			node:  it.Tree,
			name:  name,
			group: models.JobGroupFinal,
			runs:  it.Item.Runs,
			me:    it.Item.MELevel,
			te:    it.Item.TELevel,
		}); err != nil {
			return nil, err
		}
	}

	return acc.result(), nil
}

func (a *bomAccumulator) walk(root bomFrame) error {
	stack := []bomFrame{root}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth > MaxTreeDepth {
			return &UpstreamUnavailableError{
				Service: "tree_builder",
				Err:     fmt.Errorf("type %d: %w", f.node.ProductTypeID, ErrTreeTooDeep),
			}
		}

		activity := f.node.ActivityType
		if activity == "" {
			activity = models.ActivityManufacturing
		}
		a.add(bomKey{f.node.ProductTypeID, true, f.group, activity}, f.name, f.runs, f.me, f.te)

		if f.node.HasCopy {
			a.add(bomKey{f.node.ProductTypeID, true, models.JobGroupBlueprint, models.ActivityCopying},
				f.name, f.runs, 0, 0)
		}

		// Reverse push keeps the natural visiting order on the stack.
		for i := len(f.node.Materials) - 1; i >= 0; i-- {
			m := f.node.Materials[i]
			if !m.IsBuildable || m.Subtree == nil {
				a.add(bomKey{typeID: m.TypeID}, m.TypeName, m.Quantity, 0, 0)
				continue
			}

			sub := m.Subtree
			subActivity := sub.ActivityType
			if subActivity == "" {
				subActivity = m.ActivityType
			}
			if subActivity == "" {
				subActivity = models.ActivityManufacturing
			}
			me, te := componentMELevel, componentTELevel
			if subActivity == models.ActivityReaction {
				me, te = 0, 0
			}
			node := *sub
			node.ActivityType = subActivity
			stack = append(stack, bomFrame{
				node:  &node,
				name:  m.TypeName,
				group: models.JobGroupComponent,
				runs:  sub.Runs,
				me:    me,
				te:    te,
				depth: f.depth + 1,
			})
		}
	}
	return nil
}

var jobGroupOrder = map[string]int{
	models.JobGroupFinal:     0,
	models.JobGroupComponent: 1,
	models.JobGroupBlueprint: 2,
}

func (a *bomAccumulator) result() *BillOfMaterials {
	bom := &BillOfMaterials{
		Materials: []models.BomItem{},
		Jobs:      []models.BomItem{},
	}
	for _, line := range a.lines {
		if line.IsJob {
			bom.Jobs = append(bom.Jobs, *line)
		} else {
			bom.Materials = append(bom.Materials, *line)
		}
	}

	sort.Slice(bom.Materials, func(i, j int) bool {
		return bom.Materials[i].TypeID < bom.Materials[j].TypeID
	})
	sort.Slice(bom.Jobs, func(i, j int) bool {
		x, y := bom.Jobs[i], bom.Jobs[j]
		if gx, gy := jobGroupOrder[x.JobGroup], jobGroupOrder[y.JobGroup]; gx != gy {
			return gx < gy
		}
		if x.TypeID != y.TypeID {
			return x.TypeID < y.TypeID
		}
		return x.ActivityType < y.ActivityType
	})
	return bom
}

// MaterialTypeIDs returns the distinct material type ids in ascending order.
func (b *BillOfMaterials) MaterialTypeIDs() []int {
	ids := make([]int, 0, len(b.Materials))
	for _, m := range b.Materials {
		ids = append(ids, m.TypeID)
	}
	return ids
}

// ApplyPrices attaches unit prices to material lines. Types absent from the
// map, or mapped to nil, keep a nil price.
func (b *BillOfMaterials) ApplyPrices(prices map[int]*float64) {
	for i := range b.Materials {
		if p, ok := prices[b.Materials[i].TypeID]; ok && p != nil {
			price := *p
			b.Materials[i].EstimatedPrice = &price
		}
	}
}

// Lines returns materials followed by jobs.
func (b *BillOfMaterials) Lines() []models.BomItem {
	lines := make([]models.BomItem, 0, len(b.Materials)+len(b.Jobs))
	lines = append(lines, b.Materials...)
	return append(lines, b.Jobs...)
}
