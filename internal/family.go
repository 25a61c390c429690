/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package internal

// Family identifies a sketch family for the serialization framing header
// (common.FrameHeader.FamilyID) and dispatch of deserialization.
type Family struct {
	Id          int
	MaxPreLongs int
}

type families struct {
	HLL        Family
	CPC        Family
	Theta      Family
	CountMin   Family
	DDSketch   Family
	Bloom      Family
	Cuckoo     Family
	SlidingHLL Family
	Reservoir  Family
}

// FamilyEnum assigns the wire-format family ids from the top-level
// serialization framing table.
var FamilyEnum = &families{
	HLL:        Family{Id: 1, MaxPreLongs: 1},
	CPC:        Family{Id: 2, MaxPreLongs: 5},
	Theta:      Family{Id: 3, MaxPreLongs: 4},
	CountMin:   Family{Id: 4, MaxPreLongs: 1},
	DDSketch:   Family{Id: 5, MaxPreLongs: 1},
	Bloom:      Family{Id: 6, MaxPreLongs: 1},
	Cuckoo:     Family{Id: 7, MaxPreLongs: 1},
	SlidingHLL: Family{Id: 8, MaxPreLongs: 1},
	Reservoir:  Family{Id: 9, MaxPreLongs: 1},
}
