package session

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

// ActionDescriptor describes an action to be built on the server: which
// action type to instantiate, which parts fill its slots, optional fixed
// parameters, and any reactions attached to it.
type ActionDescriptor struct {
	actionTypeName string
	actionId       ActionInstanceId

	// slotPartMap is set when the action's slots were bound explicitly.
	slotPartMap SlotPartMap
	hasSlotMap  bool

	// singlePart is set when the caller is relying on slot inference for an
	// action with exactly one slot.
	singlePart    SinglePartSlotPartMap
	hasSinglePart bool

	fixedParams    *anypb.Any
	reactions      []ReactionDescriptor
}

// NewActionDescriptor builds an ActionDescriptor for actionTypeName with the
// given actionId, with slots bound explicitly by slotPartMap. actionTypeName
// must name an action type registered on the server, and actionId must be
// unique within the surrounding session.
func NewActionDescriptor(actionTypeName string, actionId ActionInstanceId, slotPartMap SlotPartMap) ActionDescriptor {
	return ActionDescriptor{
		actionTypeName: actionTypeName,
		actionId:       actionId,
		slotPartMap:    slotPartMap,
		hasSlotMap:     true,
	}
}

// NewSingleSlotActionDescriptor builds an ActionDescriptor the same way as
// NewActionDescriptor, except the slot-to-part binding is inferred from the
// action type's signature at [Session.AddAction] time. This only succeeds
// for action types with exactly one slot.
func NewSingleSlotActionDescriptor(actionTypeName string, actionId ActionInstanceId, partName string) ActionDescriptor {
	return ActionDescriptor{
		actionTypeName: actionTypeName,
		actionId:       actionId,
		singlePart:     SinglePartSlotPartMap{PartName: partName},
		hasSinglePart:  true,
	}
}

// WithFixedParams attaches fixedParams to the action. No reference to
// fixedParams is retained beyond this call; only one set of fixed
// parameters may be associated with an ActionDescriptor, and a later call
// replaces the previous one.
func (a ActionDescriptor) WithFixedParams(fixedParams *anypb.Any) ActionDescriptor {
	a.fixedParams = proto.Clone(fixedParams).(*anypb.Any)
	return a
}

// WithReaction appends reactionDescriptor to the action's reactions. While
// the action is active, its reactions are evaluated; multiple reactions may
// be added to a single action.
func (a ActionDescriptor) WithReaction(reactionDescriptor ReactionDescriptor) ActionDescriptor {
	reactions := make([]ReactionDescriptor, len(a.reactions), len(a.reactions)+1)
	copy(reactions, a.reactions)
	a.reactions = append(reactions, reactionDescriptor)
	return a
}

// Id returns the ActionInstanceId this descriptor will be created with.
func (a ActionDescriptor) Id() ActionInstanceId { return a.actionId }

// Action is a handle to an already-created action, returned by
// [Session.AddAction] and [Session.AddActions].
type Action struct {
	id ActionInstanceId
}

// Id returns the ActionInstanceId given to the ActionDescriptor this Action
// was created from.
func (a Action) Id() ActionInstanceId { return a.id }
