package main

import "fmt"

// ItemType enumerates the droppable items. Serialized as its integer value.
type ItemType int

const (
	ItemBalloon ItemType = iota // +1 max balloon
	ItemPotion                  // +1 blast range
	ItemRoller                  // -1 move cost tick
	ItemNeedle                  // +1 self-rescue charge
	ItemKick                    // can kick balloons
	ItemGlove                   // can throw balloons
	ItemShark                   // ride a shark
)

func (t ItemType) String() string {
	switch t {
	case ItemBalloon:
		return "balloon"
	case ItemPotion:
		return "potion"
	case ItemRoller:
		return "roller"
	case ItemNeedle:
		return "needle"
	case ItemKick:
		return "kick"
	case ItemGlove:
		return "glove"
	case ItemShark:
		return "shark"
	}
	return "unknown"
}

// Item is a spawned pickup sitting on a cleared block cell.
type Item struct {
	ID   string
	Type ItemType
	Pos  Cell
}

// pickItemType maps a roll in [0,100) onto the fixed weighted distribution:
// 22% balloon, 22% potion, 18% roller, 10% needle, 10% kick, 8% glove and
// the remaining 10% shark.
func pickItemType(roll int) ItemType {
	switch {
	case roll < 22:
		return ItemBalloon
	case roll < 44:
		return ItemPotion
	case roll < 62:
		return ItemRoller
	case roll < 72:
		return ItemNeedle
	case roll < 82:
		return ItemKick
	case roll < 90:
		return ItemGlove
	default:
		return ItemShark
	}
}

// applyItemEffect mutates the picker's stats. Counts are capped; pickups
// past a cap are consumed with no effect.
func applyItemEffect(p *Player, t ItemType) {
	switch t {
	case ItemBalloon:
		if p.Stats.BalloonCount < maxBalloonCount {
			p.Stats.BalloonCount++
		}
	case ItemPotion:
		if p.Stats.BalloonRange < maxBalloonRange {
			p.Stats.BalloonRange++
		}
	case ItemRoller:
		if p.Stats.MoveCostTick > minMoveCostTick {
			p.Stats.MoveCostTick--
		}
	case ItemNeedle:
		p.Stats.NeedleCount++
	case ItemKick:
		p.Stats.HasKick = true
	case ItemGlove:
		p.Stats.HasGlove = true
	case ItemShark:
		p.Stats.IsRidingShark = true
		p.Status = StatusRiding
	}
}

// onBlockDestroyed rolls the drop chance and spawns a weighted random item
// on the cleared cell. Caller holds g.mu.
func (g *Game) onBlockDestroyed(pos Cell) {
	if g.rng.Intn(100) >= g.cfg.DropPercent {
		return
	}
	g.spawnItem(pos, pickItemType(g.rng.Intn(100)))
}

// spawnItem registers a new item and announces it. Caller holds g.mu.
func (g *Game) spawnItem(pos Cell, t ItemType) {
	id := fmt.Sprintf("item_%d", g.nextItemID)
	g.nextItemID++

	g.items[id] = &Item{ID: id, Type: t, Pos: pos}
	g.metrics.ItemsSpawned.Add(1)

	g.broadcast(&ItemSpawnPacket{
		Header:   header(PacketItemSpawn),
		ItemId:   id,
		ItemType: t,
		GridPos:  pos,
	})
	g.log.Infof("item %s (%s) spawned at (%d,%d)", id, t, pos.X, pos.Y)
}

// checkPickup consumes the item under the player's committed position, if
// any. The delete-then-apply order under the lock makes pickup exactly-once
// even when two movement reports race. Caller holds g.mu.
func (g *Game) checkPickup(p *Player) {
	for id, it := range g.items {
		if it.Pos != p.Pos {
			continue
		}
		delete(g.items, id)
		applyItemEffect(p, it.Type)
		g.metrics.ItemsPickedUp.Add(1)

		g.broadcast(&ItemPickupPacket{
			Header:   header(PacketItemPickup),
			ItemId:   id,
			PlayerId: p.ID,
			ItemType: it.Type,
		})
		g.broadcast(&PlayerStatePacket{
			Header: header(PacketPlayerState),
			Player: p.Snapshot(),
		})
		g.analytics.Track(EvtItemPickup, p.ID, it.Type.String())
		g.log.Infof("player %d picked up %s (%s)", p.ID, id, it.Type)
		// At most one item per cell by construction.
		return
	}
}
