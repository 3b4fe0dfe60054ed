// Copyright 2023-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protopeek

// ExampleInput is a sample hex-encoded message with nested messages,
// repeated fields, UTF-8 strings and a fixed32 float. It is what
// "protopeek decode --example" shows.
const ExampleInput = `
0AA00208AF8EABF5F73210012A99010A1A0A18414E44524F49445F3630636564
61613162636532666535321235082010011A027A682204584459582A0C362E31
312E302E313031313830864F3A12636F6D2E736D696C652E6769666D616B6572
48031A170A02323512115869616F6475285844482D31382D4131292210080212
0CE4B8ADE59BBDE7A7BBE58AA83A191A17474D542B30383A303020417369612F
5368616E6768616932531A5108011A4D0801220E69735F6C6F67696E3D46414C
53452A2461323462663833612D373335642D346365332D623935642D30303838
3233633835393561300350015A0F564F4943455F424F585F4C4F47494E4A2462
616631373736322D333835662D346437382D613130302D316636393931663566
6664390AE50308BE96B2F5F73210012A9F010A200A18414E44524F49445F3630
636564616131626365326665353210C49CABB30F1235082010011A027A682204
584459582A0C362E31312E302E313031313830864F3A12636F6D2E736D696C65
2E6769666D616B657248031A170A02323512115869616F6475285844482D3138
2D41312922100802120CE4B8ADE59BBDE7A7BBE58AA83A191A17474D542B3038
3A303020417369612F5368616E67686169329102228E020A2462616631373736
322D333835662D346437382D613130302D316636393931663566666439180822
5F0801220D69735F6C6F67696E3D545255452A2462653833623937382D356336
302D346661382D613734302D366663323931393766303630300350015A22564F
4943455F424F585F4C414E4453434150455F564F4943455F424F585F46494E44
52600802220E69735F6C6F67696E3D46414C53452A2465353331636438392D35
3237662D346265362D626532342D396135383836326334376665300250015A22
564F4943455F424F585F4C414E4453434150455F564F4943455F424F585F4649
4E445A0E420C4C4F47494E5F425554544F4E650000803F720C4C4F47494E5F52
4553554C544A2462616631373736322D333835662D346437382D613130302D31
6636393931663566666439
`
